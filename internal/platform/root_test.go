package platform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   vault/ (.obsidian)
	//     boards/
	//       archive/
	//   empty/
	baseDir := t.TempDir()
	vaultDir := filepath.Join(baseDir, "vault")
	boardsDir := filepath.Join(vaultDir, "boards")
	nestedDir := filepath.Join(boardsDir, "archive")
	emptyDir := filepath.Join(baseDir, "empty")

	require.NoError(t, os.MkdirAll(nestedDir, 0755))
	require.NoError(t, os.MkdirAll(emptyDir, 0755))
	require.NoError(t, os.Mkdir(filepath.Join(vaultDir, ".obsidian"), 0755))

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{name: "Start at Root", startPath: vaultDir, wantRoot: vaultDir},
		{name: "Start in Subdir", startPath: boardsDir, wantRoot: vaultDir},
		{name: "Start Nested Deeply", startPath: nestedDir, wantRoot: vaultDir},
		{name: "No Root Found", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrRootNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.wantRoot), filepath.Clean(got))
		})
	}

	t.Run("Settings File Marks Root", func(t *testing.T) {
		dir := filepath.Join(baseDir, "configured")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".sprintboard.yaml"), nil, 0600))

		got, err := FindRoot(filepath.Join(dir, "sub"))
		require.NoError(t, err)
		assert.Equal(t, dir, got)
	})
}
