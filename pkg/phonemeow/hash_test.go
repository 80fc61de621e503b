package phonemeow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/phonemeow/pkg/phonemeow"
)

func TestHashNumber(t *testing.T) {
	hash := phonemeow.HashNumber("4155551212")
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, phonemeow.HashNumber("4155551212"))
	assert.NotEqual(t, hash, phonemeow.HashNumber("4155551213"))
}

// Candidate symmetry: for any digit string longer than 3 characters the
// candidate set is the hash of the string itself plus the hashes with 1, 2
// and 3 leading characters dropped.
func TestCandidateHashes_Symmetry(t *testing.T) {
	number := "14155551212"
	hashes := phonemeow.CandidateHashes(number)
	require.Len(t, hashes, 4)
	assert.Equal(t, phonemeow.HashNumber("14155551212"), hashes[0])
	assert.Equal(t, phonemeow.HashNumber("4155551212"), hashes[1])
	assert.Equal(t, phonemeow.HashNumber("155551212"), hashes[2])
	assert.Equal(t, phonemeow.HashNumber("55551212"), hashes[3])

	assert.Nil(t, phonemeow.CandidateHashes("123"))
	assert.Nil(t, phonemeow.CandidateHashes(""))
}

func TestPossibleHashes(t *testing.T) {
	// No qualifying calling code: single hash of the number as-is.
	assert.Equal(t,
		[]string{phonemeow.HashNumber("4155551212")},
		phonemeow.PossibleHashes("4155551212"))
	// Qualifying NANP code: hash of the bare national number.
	assert.Equal(t,
		[]string{phonemeow.HashNumber("4155551212")},
		phonemeow.PossibleHashes("+1 415 555 1212"))
	assert.Nil(t, phonemeow.PossibleHashes(""))
	assert.Nil(t, phonemeow.PossibleHashes("ext."))
	assert.Nil(t, phonemeow.PossibleHashes("911"))
}

// PossibleHashes never produces a hash the candidate set does not cover,
// so the local snapshot built from candidate hashes always detects
// directory matches.
func TestPossibleHashes_SubsetOfCandidates(t *testing.T) {
	numbers := []string{"14155551212", "4155551212", "3545551212", "5551212", "443335557777"}
	for _, number := range numbers {
		possible := phonemeow.PossibleHashes(number)
		candidates := phonemeow.CandidateHashes(number)
		for _, hash := range possible {
			assert.Contains(t, candidates, hash, "number %s", number)
		}
	}
}

func TestPossibleHashesForAll(t *testing.T) {
	hashes := phonemeow.PossibleHashesForAll([]string{"4155551212", "", "123", "4155551212"})
	assert.Equal(t, []string{phonemeow.HashNumber("4155551212")}, hashes)
}

func TestHashesIntersect(t *testing.T) {
	a := phonemeow.CandidateHashes("14155551212")
	b := phonemeow.PossibleHashes("4155551212")
	assert.True(t, phonemeow.HashesIntersect(a, b))
	assert.False(t, phonemeow.HashesIntersect(a, []string{"deadbeef"}))
	assert.False(t, phonemeow.HashesIntersect(nil, b))
}
