// Package sprintboard is the composition root for the sprint board sync.
//
// It pulls the work items of the current sprint from a remote tracker
// (Azure DevOps or Jira) and reconciles them into a markdown Kanban board
// that lives in a local vault, typically an Obsidian vault read by the
// Kanban plugin. The core domain is isolated from transport and storage
// following the hexagonal layout: drivers, the markdown codec and the
// document stores are adapters around pkg/core.
//
// Features:
//
//   - **Backend Registry**: drivers are looked up by name; new trackers plug in via core.Backend.
//   - **Non-destructive Reconciliation**: cards the user wrote by hand, notes under linked cards,
//     extra columns and plugin settings survive every sync.
//   - **Safe Writes**: atomic replacement, one sync per board, cross-process lock files.
//   - **Optional Git Versioning**: commit the board after each sync.
//   - **Alternative Storage**: keep the vault in an S3 bucket with an s3:// vault URI.
//
// Usage:
//
//	svc, err := sprintboard.New("./vault", sprintboard.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	report, err := svc.RunSync(ctx, settings)
package sprintboard
