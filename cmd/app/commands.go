package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/anota/internal"
	"github.com/starford/anota/internal/export"
	"github.com/starford/anota/internal/logging"
	"github.com/starford/anota/internal/mcpserver"
	"github.com/starford/anota/internal/migrate"
	"github.com/starford/anota/internal/models"
	"github.com/starford/anota/internal/noteservice"
	"github.com/starford/anota/internal/vault"
)

// withWorkspace opens the vault for a one-shot command. Logs go to stderr
// so stdout stays free for command output. The search cache is skipped.
func withWorkspace(cmd *cli.Command, fn func(*internal.Workspace, *internal.Config, *slog.Logger) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.FormatText, cfg.App.LogLevel, os.Stderr)
	if err != nil {
		return err
	}
	root, err := internal.ResolveVaultPath(cfg, sessionStore())
	if err != nil {
		return err
	}
	cfg.Index.Enabled = false

	ws, err := internal.OpenWorkspace(cfg, root, logger)
	if err != nil {
		return err
	}
	return errors.Join(fn(ws, cfg, logger), ws.Close())
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the vault to an MCP client over stdio",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return withWorkspace(cmd, func(ws *internal.Workspace, _ *internal.Config, _ *slog.Logger) error {
				return mcpserver.New(ws.Service, version).ServeStdio()
			})
		},
	}
}

func openCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "Select a directory as the vault and remember it",
		ArgsUsage: "<dir>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				return errors.New("open: directory argument is required")
			}
			store, err := vault.Open(dir)
			if err != nil {
				return err
			}
			if err := store.EnsureLayout(); err != nil {
				return err
			}
			if s := sessionStore(); s != nil {
				if err := s.Remember(store.Root(), time.Now()); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.Root().Writer, store.Root())
			return nil
		},
	}
}

func lsCommand() *cli.Command {
	return &cli.Command{
		Name:  "ls",
		Usage: "List folders and notes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Value: models.FolderAll, Usage: "Folder id"},
			&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Only notes with this tag"},
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Only notes containing this text"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return withWorkspace(cmd, func(ws *internal.Workspace, _ *internal.Config, _ *slog.Logger) error {
				notes := ws.Service.Notes(noteservice.Filter{
					FolderID: cmd.String("folder"),
					Tag:      cmd.String("tag"),
					Search:   cmd.String("search"),
				})
				renderListing(cmd.Root().Writer, ws.Service.Folders(), notes)
				return nil
			})
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Convert a legacy storage.json into the vault",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Required: true, Usage: "Path to storage.json"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return withWorkspace(cmd, func(ws *internal.Workspace, _ *internal.Config, logger *slog.Logger) error {
				report, err := migrate.File(cmd.String("from"), ws.Service.Store(), logger)
				if err != nil {
					return err
				}
				renderReport(cmd.Root().Writer, report)
				return ws.Service.Reload()
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import markdown files as notes",
		ArgsUsage: "<file.md>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "folder", Aliases: []string{"f"}, Value: models.FolderAll, Usage: "Target folder id"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return errors.New("import: at least one file is required")
			}
			return withWorkspace(cmd, func(ws *internal.Workspace, cfg *internal.Config, _ *slog.Logger) error {
				for _, f := range files {
					data, err := os.ReadFile(f)
					if err != nil {
						return err
					}
					_, content := export.Import(filepath.Base(f), data, cfg.Editor.TitleMaxLength)
					n, err := ws.Service.ImportNote(cmd.String("folder"), content)
					if err != nil {
						return fmt.Errorf("import %s: %w", f, err)
					}
					fmt.Fprintf(cmd.Root().Writer, "%s\t%s\n", n.ID, n.Title)
				}
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a note as markdown or HTML",
		ArgsUsage: "<note-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Value: export.FormatMarkdown, Usage: "md or html"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file or directory, stdout if empty"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return errors.New("export: note id is required")
			}
			return withWorkspace(cmd, func(ws *internal.Workspace, _ *internal.Config, _ *slog.Logger) error {
				n, err := ws.Service.Note(id)
				if err != nil {
					return err
				}
				body, _, name, err := export.New(nil).Export(n, cmd.String("format"))
				if err != nil {
					return err
				}
				return writeOutput(cmd.Root().Writer, cmd.String("out"), name, body)
			})
		},
	}
}

// writeOutput writes body to w when out is empty, into out/name when out
// is a directory, and to out otherwise.
func writeOutput(w io.Writer, out, name string, body []byte) error {
	if out == "" {
		_, err := w.Write(body)
		return err
	}
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, name)
	}
	return os.WriteFile(out, body, 0o644)
}
