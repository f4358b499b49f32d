package derive

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveStageOrder_DropsUndeclaredStages(t *testing.T) {
	got := ResolveStageOrder([]string{"ingest", "normalize"}, []string{"ingest", "normalize", "extract"})
	require.Equal(t, []string{"ingest", "normalize"}, got)
}

func TestResolveStageOrder_FallsBackToKeyOrder(t *testing.T) {
	keys := []string{"b", "a", "c"}
	require.Equal(t, keys, ResolveStageOrder(keys, nil))
	require.Equal(t, keys, ResolveStageOrder(keys, []string{}))
}

func TestResolveStageOrder_AppendsUnknownKeysInOriginalOrder(t *testing.T) {
	got := ResolveStageOrder([]string{"z", "extract", "y", "ingest"}, []string{"ingest", "extract"})
	require.Equal(t, []string{"ingest", "extract", "z", "y"}, got)
}

func TestResolveStageOrder_IgnoresDuplicateDeclarations(t *testing.T) {
	got := ResolveStageOrder([]string{"a", "b"}, []string{"b", "a", "b"})
	require.Equal(t, []string{"b", "a"}, got)
}

func TestResolveStageOrder_PermutationProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		universe := make([]string, 8)
		for j := range universe {
			universe[j] = fmt.Sprintf("s%d", j)
		}
		rng.Shuffle(len(universe), func(a, b int) { universe[a], universe[b] = universe[b], universe[a] })
		keys := append([]string{}, universe[:rng.Intn(len(universe)+1)]...)
		rng.Shuffle(len(universe), func(a, b int) { universe[a], universe[b] = universe[b], universe[a] })
		order := append([]string{}, universe[:rng.Intn(len(universe)+1)]...)

		got := ResolveStageOrder(keys, order)
		require.ElementsMatch(t, keys, got, "case %d", i)

		keySet := map[string]bool{}
		for _, k := range keys {
			keySet[k] = true
		}
		declared := map[string]bool{}
		want := []string{}
		for _, o := range order {
			if keySet[o] && !declared[o] {
				declared[o] = true
				want = append(want, o)
			}
		}
		for _, k := range keys {
			if !declared[k] {
				want = append(want, k)
			}
		}
		require.Equal(t, want, got, "case %d", i)
	}
}

func TestDetectConcernGroup(t *testing.T) {
	role, ok := DetectConcernGroup("creative_direction", []string{"sound_and_music"})
	require.True(t, ok)
	require.Equal(t, "sound_designer", role.RoleID)
	require.Equal(t, "Sound Designer", role.RoleName)
	require.Equal(t, "Sound & Music", role.Label)

	_, ok = DetectConcernGroup("creative_direction", []string{"a", "b"})
	require.False(t, ok)
	_, ok = DetectConcernGroup("mvp_ingest", []string{"ingest"})
	require.False(t, ok)
	_, ok = DetectConcernGroup("creative_direction", nil)
	require.False(t, ok)
	_, ok = DetectConcernGroup("creative_direction", []string{"storyboard"})
	require.False(t, ok)
	_, ok = DetectConcernGroup("mvp_ingest", []string{"sound_and_music"})
	require.False(t, ok)

	for _, id := range ConcernStages() {
		_, ok := DetectConcernGroup(CreativeDirectionRecipe, []string{id})
		require.True(t, ok, id)
	}
}
