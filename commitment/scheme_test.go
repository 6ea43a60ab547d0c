package commitment

import (
	"testing"

	"github.com/mezonai/remit/errors"
	"github.com/mezonai/remit/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	carol = "carol"
	bob   = "bob"
)

func mustScheme(t *testing.T, mode Mode, instance string, two bool) *Scheme {
	t.Helper()
	s, err := NewScheme(mode, types.Address(instance), two)
	require.NoError(t, err)
	return s
}

func TestCommitIsDeterministic(t *testing.T) {
	s := mustScheme(t, ModeBound, "instance-a", true)

	h1, err := s.Commit(carol, Secrets{First: "bananas", Second: "cherries"})
	require.NoError(t, err)
	h2, err := s.Commit(carol, Secrets{First: "bananas", Second: "cherries"})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.False(t, h1.IsZero())
}

func TestCommitDiffersAcrossInstances(t *testing.T) {
	a := mustScheme(t, ModeBound, "instance-a", false)
	b := mustScheme(t, ModeBound, "instance-b", false)

	ha, err := a.Commit(carol, Secrets{First: "bananas"})
	require.NoError(t, err)
	hb, err := b.Commit(carol, Secrets{First: "bananas"})
	require.NoError(t, err)

	assert.NotEqual(t, ha, hb, "same secret on different instances must not collide")
}

func TestBoundModeBindsClaimant(t *testing.T) {
	s := mustScheme(t, ModeBound, "instance-a", false)

	forCarol, err := s.Commit(carol, Secrets{First: "bananas"})
	require.NoError(t, err)
	forBob, err := s.Commit(bob, Secrets{First: "bananas"})
	require.NoError(t, err)

	assert.NotEqual(t, forCarol, forBob)
}

func TestBearerModeIgnoresClaimant(t *testing.T) {
	s := mustScheme(t, ModeBearer, "instance-a", false)

	forCarol, err := s.Commit(carol, Secrets{First: "bananas"})
	require.NoError(t, err)
	anonymous, err := s.Commit("", Secrets{First: "bananas"})
	require.NoError(t, err)

	assert.Equal(t, forCarol, anonymous)
}

func TestModesAreDomainSeparated(t *testing.T) {
	bound := mustScheme(t, ModeBound, "instance-a", false)
	bearer := mustScheme(t, ModeBearer, "instance-a", false)

	hb, err := bound.Commit(carol, Secrets{First: "bananas"})
	require.NoError(t, err)
	hr, err := bearer.Commit(carol, Secrets{First: "bananas"})
	require.NoError(t, err)

	assert.NotEqual(t, hb, hr)
}

func TestFieldBoundariesAreUnambiguous(t *testing.T) {
	s := mustScheme(t, ModeBearer, "instance-a", true)

	h1, err := s.Commit("", Secrets{First: "ab", Second: "c"})
	require.NoError(t, err)
	h2, err := s.Commit("", Secrets{First: "a", Second: "bc"})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestCommitRejectsInvalidInput(t *testing.T) {
	two := mustScheme(t, ModeBound, "instance-a", true)
	one := mustScheme(t, ModeBound, "instance-a", false)

	cases := []struct {
		name     string
		scheme   *Scheme
		claimant types.Address
		secrets  Secrets
	}{
		{"empty first secret", one, carol, Secrets{}},
		{"missing second secret", two, carol, Secrets{First: "bananas"}},
		{"unexpected second secret", one, carol, Secrets{First: "bananas", Second: "cherries"}},
		{"empty claimant in bound mode", one, "", Secrets{First: "bananas"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.scheme.Commit(tc.claimant, tc.secrets)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
		})
	}
}

func TestNewSchemeValidation(t *testing.T) {
	_, err := NewScheme("weird", "instance-a", false)
	assert.Error(t, err)

	_, err = NewScheme(ModeBound, "", false)
	assert.Error(t, err)

	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeBound, mode)

	_, err = ParseMode("open")
	assert.Error(t, err)
}
