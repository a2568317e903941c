package plan

import (
	"testing"

	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestPlan_Validate(t *testing.T) {
	valid := Plan{ID: 1, Title: "Gold", Duration: 3, Price: shared.NewMoney(100, 0)}
	assert.NoError(t, valid.Validate())

	zero := valid
	zero.Duration = 0
	assert.True(t, shared.IsValidation(zero.Validate()))

	untitled := valid
	untitled.Title = "  "
	assert.True(t, shared.IsValidation(untitled.Validate()))
}

func TestPlan_Total(t *testing.T) {
	p := Plan{ID: 1, Title: "Diamond", Duration: 6, Price: shared.NewMoney(89, 90)}
	assert.Equal(t, shared.NewMoney(539, 40), p.Total())
}
