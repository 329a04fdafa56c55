package catalog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func titled(titles ...string) []Material {
	out := make([]Material, 0, len(titles))
	for i, t := range titles {
		out = append(out, Material{ID: fmt.Sprint(i + 1), Title: t})
	}
	return out
}

func TestTitleSuggestions(t *testing.T) {
	t.Parallel()
	src := titled("Go in Action", "Learning Go", " Go in Action ", "", "Gopher Guide", "Mongo Basics")

	require.Equal(t, []string{"Go in Action", "Gopher Guide", "Learning Go", "Mongo Basics"}, TitleSuggestions(src, " GO "))
	require.Empty(t, TitleSuggestions(src, "g"))
	require.Empty(t, TitleSuggestions(src, "   "))
	require.Equal(t, []string{"Learning Go"}, TitleSuggestions(src, "ning"))
}

func TestTitleSuggestions_Cyrillic(t *testing.T) {
	t.Parallel()
	src := titled("Мастер и Маргарита", "Маргарита", "Собачье сердце")
	require.Equal(t, []string{"Мастер и Маргарита", "Маргарита"}, TitleSuggestions(src, "ма"))
	require.Equal(t, []string{"Маргарита", "Мастер и Маргарита"}, TitleSuggestions(src, "марг"))
}

func TestTitleSuggestions_Cap(t *testing.T) {
	t.Parallel()
	var titles []string
	for i := 0; i < 10; i++ {
		titles = append(titles, fmt.Sprintf("must read %d", i))
	}
	for i := 0; i < 10; i++ {
		titles = append(titles, fmt.Sprintf("starts %d", i))
	}
	got := TitleSuggestions(titled(titles...), "st")
	require.Len(t, got, 8)
	for i, s := range got {
		require.Equal(t, fmt.Sprintf("starts %d", i), s)
	}
}

func TestTitleSuggestions_EarlyExit(t *testing.T) {
	t.Parallel()
	var titles []string
	for i := 0; i < 8; i++ {
		titles = append(titles, fmt.Sprintf("ab %d", i), fmt.Sprintf("x ab %d", i))
	}
	titles = append(titles, "ab late")

	s, ok := newSuggester("ab")
	require.True(t, ok)
	for _, m := range titled(titles...) {
		s.offer(m.Title)
		if s.full() {
			break
		}
	}
	require.NotContains(t, s.starts, "ab late")
	require.Len(t, s.result(), 8)
}

func TestAuthorSuggestions(t *testing.T) {
	t.Parallel()
	src := []Material{
		{Authors: "Gamma Erich, Helm Richard, Johnson Ralph"},
		{Authors: "Marshal Ann, Hall Edward"},
		{Authors: "Helm Richard"},
		{Authors: "Hallmark Ivy"},
		{Authors: Placeholder},
	}
	require.Equal(t, []string{"Gamma Erich", "Helm Richard"}, AuthorSuggestions(src, "ri"))
	require.Equal(t, []string{"Hall Edward", "Hallmark Ivy", "Marshal Ann"}, AuthorSuggestions(src, "HAL"))
	require.Equal(t, []string{"Johnson Ralph"}, AuthorSuggestions(src, " jo"))
	require.Empty(t, AuthorSuggestions(src, "h"))
}
