package inmemory

import (
	"context"

	"whiteboard/internal/models/activity"
)

func (s *Storage) AppendActivity(ctx context.Context, entry *activity.Entry) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.nextActivityID++
	entry.ID = s.nextActivityID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	c := *entry
	s.activity = append(s.activity, &c)
	return nil
}

// ListActivity - последние записи, новые первыми
func (s *Storage) ListActivity(ctx context.Context, limit int) ([]*activity.Entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if limit <= 0 {
		return []*activity.Entry{}, nil
	}
	out := make([]*activity.Entry, 0, limit)
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		c := *s.activity[i]
		out = append(out, &c)
	}
	return out, nil
}
