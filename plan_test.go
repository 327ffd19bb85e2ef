package matrixctl_test

import (
	"testing"

	"github.com/fwojciec/matrixctl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlan(t *testing.T) {
	t.Parallel()

	t.Run("aligned plan for 237 users", func(t *testing.T) {
		t.Parallel()

		plan, err := matrixctl.NewPlan(237, 4)
		require.NoError(t, err)
		plan = plan.Aligned(matrixctl.MaxPageSize)

		assert.Equal(t, 100, plan.StepSize)
		assert.Equal(t, 3, plan.ConcurrentLimit)
		assert.Equal(t, 1, plan.Iterations)
		assert.Equal(t, 63, plan.Offset)
		assert.Equal(t, []int{0, 100, 200}, plan.Cursors(0))
	})

	t.Run("rebalances the step across workers", func(t *testing.T) {
		t.Parallel()

		plan, err := matrixctl.NewPlan(237, 4)

		require.NoError(t, err)
		assert.Equal(t, 79, plan.StepSize)
		assert.Equal(t, 3, plan.ConcurrentLimit)
		assert.Equal(t, 0, plan.Offset)
	})

	t.Run("iterates when workers cannot cover the limit", func(t *testing.T) {
		t.Parallel()

		plan, err := matrixctl.NewPlan(1000, 2)

		require.NoError(t, err)
		assert.Equal(t, 2, plan.ConcurrentLimit)
		assert.Equal(t, 5, plan.Iterations)
		assert.Equal(t, 100, plan.StepSize)
		assert.Equal(t, 10, plan.Requests())
		assert.Equal(t, []int{50, 150, 250}, plan.Cursors(50)[:3])
	})

	t.Run("small limits use one request", func(t *testing.T) {
		t.Parallel()

		plan, err := matrixctl.NewPlan(7, 4)

		require.NoError(t, err)
		assert.Equal(t, matrixctl.Plan{Limit: 7, StepSize: 7, ConcurrentLimit: 1, Iterations: 1}, plan)
	})

	t.Run("rejects non-positive input", func(t *testing.T) {
		t.Parallel()

		_, err := matrixctl.NewPlan(0, 4)
		assert.Equal(t, matrixctl.EINVALID, matrixctl.ErrorCode(err))
		_, err = matrixctl.NewPlan(10, 0)
		assert.Equal(t, matrixctl.EINVALID, matrixctl.ErrorCode(err))
	})
}

func TestNewPlan_Soundness(t *testing.T) {
	t.Parallel()

	for limit := 1; limit <= 1200; limit++ {
		for concurrent := 1; concurrent <= 8; concurrent++ {
			plan, err := matrixctl.NewPlan(limit, concurrent)
			require.NoError(t, err, "limit=%d concurrent=%d", limit, concurrent)

			for _, p := range []matrixctl.Plan{plan, plan.Aligned(matrixctl.MaxPageSize)} {
				covered := p.StepSize * p.ConcurrentLimit * p.Iterations
				if covered < limit || p.Offset < 0 || p.Offset != covered-limit ||
					p.StepSize > matrixctl.MaxPageSize || p.StepSize < 1 ||
					p.ConcurrentLimit > concurrent || p.ConcurrentLimit < 1 {
					t.Fatalf("unsound %s for limit=%d concurrent=%d", p, limit, concurrent)
				}
			}
		}
	}
}
