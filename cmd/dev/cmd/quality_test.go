package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunChecks(t *testing.T) {
	var ran []string
	record := func(name string, err error) check {
		return check{name, func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}
	boom := errors.New("boom")

	tests := []struct {
		name     string
		checks   []check
		skip     []string
		expected []string
		err      error
	}{
		{"all in order", []check{record("lint", nil), record("test", nil), record("smoke", nil)}, nil, []string{"lint", "test", "smoke"}, nil},
		{"skipped", []check{record("lint", nil), record("test", nil), record("smoke", nil)}, []string{"lint", "smoke"}, []string{"test"}, nil},
		{"stops on failure", []check{record("lint", nil), record("test", boom), record("smoke", nil)}, nil, []string{"lint", "test"}, boom},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ran = nil
			err := runChecks(context.Background(), test.checks, test.skip)
			assert.Equal(t, test.expected, ran)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				assert.ErrorContains(t, err, "test failed")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChecks_Names(t *testing.T) {
	var names []string
	for _, c := range checks {
		names = append(names, c.name)
	}
	assert.Equal(t, []string{"lint", "test", "smoke"}, names)
}
