package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-labs/perch/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	cleanup := setupTestServices(&stubLibrary{
		results: []domain.SearchResult{
			{
				Title:   "Hello",
				URL:     "https://blog.example.com/hello/",
				Excerpt: "greeting",
				Score:   0.87,
			},
		},
	}, &stubReconciler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "greetings"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Results: 1")
	assert.Contains(t, buf.String(), "Hello")
	assert.Contains(t, buf.String(), "https://blog.example.com/hello/")
}

func TestSearchCmd_NoResults(t *testing.T) {
	cleanup := setupTestServices(&stubLibrary{}, &stubReconciler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "nothing"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No results.")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices(&stubLibrary{
		results: []domain.SearchResult{
			{Title: "Hello", URL: "https://blog.example.com/hello/", Score: 0.5},
		},
	}, &stubReconciler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"search", "--json", "greetings"})
	defer func() {
		rootCmd.SetArgs(nil)
		searchJSON = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"Title": "Hello"`)
}

func TestSearchCmd_SearchFailure(t *testing.T) {
	cleanup := setupTestServices(&stubLibrary{err: domain.ErrStoreUnavailable}, &stubReconciler{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search", "anything"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
