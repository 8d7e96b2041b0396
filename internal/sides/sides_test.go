package sides

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	a := Default([]string{"Alex", "Sam", "Kim"})
	assert.Equal(t, "Alex", a.Left)
	assert.Equal(t, "Sam", a.Right)

	assert.Equal(t, Assignment{Left: "Solo"}, Default([]string{"Solo"}))
	assert.Equal(t, Assignment{}, Default(nil))
}

func TestResolve(t *testing.T) {
	a := Assignment{Right: "Alex"}.Resolve([]string{"Alex", "Sam"})
	assert.Equal(t, "Sam", a.Left)
	assert.Equal(t, "Alex", a.Right)

	a = Assignment{Left: "Kim", Right: "Sam"}.Resolve([]string{"Alex"})
	assert.Equal(t, "Kim", a.Left)
	assert.Equal(t, "Sam", a.Right)
}

func TestSideOfAndName(t *testing.T) {
	a := Assignment{Left: "Alex", Right: "Sam", Aliases: map[string]string{"Sam": "Me"}}

	assert.Equal(t, Left, a.SideOf("Alex"))
	assert.Equal(t, Right, a.SideOf("Sam"))
	assert.Equal(t, Other, a.SideOf("Kim"))
	assert.Equal(t, Other, Assignment{}.SideOf(""))

	assert.Equal(t, "Alex", a.Name("Alex"))
	assert.Equal(t, "Me", a.Name("Sam"))
	assert.Equal(t, "right", Right.String())
}

func TestValidate(t *testing.T) {
	people := []string{"Alex", "Sam"}

	require.NoError(t, Assignment{Left: "Alex", Right: "Sam"}.Validate(people))
	require.NoError(t, Assignment{}.Validate(people))
	assert.ErrorIs(t, Assignment{Left: "Kim"}.Validate(people), ErrUnknownParticipant)
	assert.ErrorIs(t, Assignment{Left: "Sam", Right: "Sam"}.Validate(people), ErrSameParticipant)
}
