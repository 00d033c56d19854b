package core_test

import (
	"testing"

	"github.com/aretw0/sprintboard/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestBoardPath(t *testing.T) {
	tests := []struct {
		name string
		s    core.Settings
		want string
	}{
		{"project only", core.Settings{Project: "Fabrikam Fiber"}, "sprint-fabrikam-fiber.md"},
		{"project and team", core.Settings{Project: "Fabrikam", Team: "Équipe Web"}, "sprint-fabrikam-equipe-web.md"},
		{"team equals project", core.Settings{Project: "Core", Team: "core"}, "sprint-core.md"},
		{"target folder", core.Settings{Project: "P", TargetFolder: "Work/Sprints/"}, "Work/Sprints/sprint-p.md"},
		{"windows folder", core.Settings{Project: "P", TargetFolder: `Work\Sprints`}, "Work/Sprints/sprint-p.md"},
		{"folder cannot escape", core.Settings{Project: "P", TargetFolder: "../../etc"}, "etc/sprint-p.md"},
		{"explicit file", core.Settings{Project: "P", BoardFile: "Board"}, "Board.md"},
		{"explicit file with ext", core.Settings{BoardFile: "board.md", TargetFolder: "x"}, "x/board.md"},
		{"nothing configured", core.Settings{}, "sprint-board.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.BoardPath(tt.s))
		})
	}
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "sao-paulo-2024", core.Slug("  São Paulo -- 2024! "))
	assert.Equal(t, "", core.Slug("***"))
}
