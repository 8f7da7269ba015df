package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddRejectsBadSpec(t *testing.T) {
	t.Parallel()

	s := New()
	err := s.Add(context.Background(), Job{
		Name: "broken",
		Spec: "not a cron spec",
		Run:  func(context.Context) {},
	})
	assert.Error(t, err)
}

func TestAddAcceptsStandardSpecs(t *testing.T) {
	t.Parallel()

	s := New()
	for _, spec := range []string{"0 8 * * 1-5", "0 9 * * 1", "0 * * * *"} {
		assert.NoError(t, s.Add(context.Background(), Job{Name: spec, Spec: spec, Run: func(context.Context) {}}))
	}
}
