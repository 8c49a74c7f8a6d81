package redis

import (
	"context"

	"github.com/kailas-cloud/leadsearch/internal/db"
)

// IndexAdd adds members to a lexicographic sorted set (all scores 0).
func (s *Store) IndexAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zadd().Key(key).ScoreMember()
	for _, m := range members {
		cmd = cmd.ScoreMember(0, m)
	}
	if err := s.do(ctx, cmd.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// IndexRemove removes members from the set.
func (s *Store) IndexRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zrem().Key(key).Member(members...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}

// IndexRange returns up to limit members ordered lexicographically, starting
// after the given member.
func (s *Store) IndexRange(ctx context.Context, key, after string, limit int) ([]string, error) {
	lo := "-"
	if after != "" {
		lo = "(" + after
	}
	cmd := s.b().Zrangebylex().Key(key).Min(lo).Max("+").Limit(0, int64(limit)).Build()
	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRangeLex, Err: err}
	}
	return members, nil
}

// IndexCount returns the set cardinality.
func (s *Store) IndexCount(ctx context.Context, key string) (int, error) {
	cmd := s.b().Zcard().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZCard, Err: err}
	}
	return int(n), nil
}
