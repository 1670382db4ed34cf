package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePeerList_CommaSeparated(t *testing.T) {
	ids, err := parsePeerList("1,2,3")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, ids)
}

func TestParsePeerList_Range(t *testing.T) {
	ids, err := parsePeerList("1-4")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4}, ids)
}

func TestParsePeerList_Empty(t *testing.T) {
	ids, err := parsePeerList("")
	require.NoError(t, err)
	require.Nil(t, ids)
}

func TestParsePeerList_InvalidIsRejected(t *testing.T) {
	_, err := parsePeerList("1,x,3")
	require.Error(t, err)
}
