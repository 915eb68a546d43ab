package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/starford/scribe/internal/client"
	"github.com/starford/scribe/internal/notesync"
)

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Usage:   "Base URL of the scribe server",
		Value:   "http://localhost:8080",
		Sources: cli.EnvVars("SCRIBE_SERVER"),
	}
}

func tokenFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "token",
		Aliases: []string{"t"},
		Usage:   "ID token issued by scribe auth signin",
		Sources: cli.EnvVars("SCRIBE_TOKEN"),
	}
}

func newClient(cmd *cli.Command) (*client.Client, error) {
	var opts []client.Option
	if token := cmd.String("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(cmd.String("server"), opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireID(cmd *cli.Command) (string, error) {
	id := cmd.Args().First()
	if id == "" {
		return "", errors.New("a note ID argument is required")
	}
	return id, nil
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Register accounts and obtain ID tokens",
		Flags: []cli.Flag{serverFlag()},
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "name", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					uid, err := c.Register(ctx, cmd.String("email"), cmd.String("password"), cmd.String("name"))
					if err != nil {
						return fmt.Errorf("register: %s", client.Message(err))
					}
					return printJSON(map[string]string{"userId": uid})
				},
			},
			{
				Name:  "signin",
				Usage: "Exchange credentials for an ID token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					token, uid, err := c.SignIn(ctx, cmd.String("email"), cmd.String("password"))
					if err != nil {
						return fmt.Errorf("signin: %s", client.Message(err))
					}
					return printJSON(map[string]string{"uid": uid, "token": token})
				},
			},
		},
	}
}

func notesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "Manage the signed-in user's notes",
		Flags: []cli.Flag{serverFlag(), tokenFlag()},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notes, most recently created first",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					notes, err := c.ListNotes(ctx)
					if err != nil {
						return fmt.Errorf("list notes: %s", client.Message(err))
					}
					return printJSON(notes)
				},
			},
			{
				Name:      "get",
				Usage:     "Show a single note",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					note, err := c.GetNote(ctx, id)
					if err != nil {
						return fmt.Errorf("get note: %s", client.Message(err))
					}
					return printJSON(note)
				},
			},
			{
				Name:  "create",
				Usage: "Create a note",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "content", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					note, err := c.CreateNote(ctx, cmd.String("title"), cmd.String("content"))
					if err != nil {
						return fmt.Errorf("create note: %s", client.Message(err))
					}
					return printJSON(note)
				},
			},
			{
				Name:      "update",
				Aliases:   []string{"edit"},
				Usage:     "Change a note's title or content",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "content"},
				},
				Action: updateNote,
			},
			{
				Name:      "delete",
				Usage:     "Delete a note",
				ArgsUsage: "<id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id, err := requireID(cmd)
					if err != nil {
						return err
					}
					c, err := newClient(cmd)
					if err != nil {
						return err
					}
					if err := c.DeleteNote(ctx, id); err != nil {
						return fmt.Errorf("delete note: %s", client.Message(err))
					}
					return nil
				},
			},
			{
				Name:      "export",
				Usage:     "Download a note as Markdown",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to this file instead of the suggested filename"},
					&cli.BoolFlag{Name: "stdout", Usage: "Print the Markdown instead of writing a file"},
				},
				Action: exportNote,
			},
		},
	}
}

// updateNote applies the edit to the local sync store and flushes it, so the
// same save path the autosave uses is taken.
func updateNote(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	if !cmd.IsSet("title") && !cmd.IsSet("content") {
		return errors.New("at least one of --title or --content is required")
	}
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	store := notesync.New(c)
	defer store.Close()

	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load notes: %s", client.Message(err))
	}
	store.Select(id)
	note, ok := store.Snapshot().Active()
	if !ok || note.ID != id {
		return fmt.Errorf("note %s not found", id)
	}

	title, content := note.Title, note.Content
	if cmd.IsSet("title") {
		title = cmd.String("title")
	}
	if cmd.IsSet("content") {
		content = cmd.String("content")
	}
	if err := store.Edit(title, content); err != nil {
		return err
	}
	if err := store.Flush(ctx); err != nil {
		return fmt.Errorf("save note: %s", client.Message(err))
	}
	active, _ := store.Snapshot().Active()
	return printJSON(active)
}

func exportNote(ctx context.Context, cmd *cli.Command) error {
	id, err := requireID(cmd)
	if err != nil {
		return err
	}
	c, err := newClient(cmd)
	if err != nil {
		return err
	}
	export, err := c.ExportNote(ctx, id)
	if err != nil {
		return fmt.Errorf("export note: %s", client.Message(err))
	}

	if cmd.Bool("stdout") {
		_, err := os.Stdout.WriteString(export.Body)
		return err
	}
	path := filepath.Base(export.Filename)
	if out := cmd.String("out"); out != "" {
		path = out
	}
	if err := os.WriteFile(path, []byte(export.Body), 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintln(os.Stderr, "wrote", path)
	return nil
}
