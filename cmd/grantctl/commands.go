package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mattlim-fl/ai-grant-applications/internal/client"
	"github.com/mattlim-fl/ai-grant-applications/internal/editor"
	"github.com/mattlim-fl/ai-grant-applications/internal/orgctx"
)

var errUsage = errors.New("usage")

// command runs one subcommand against the API.
type command func(ctx context.Context, s *session, args []string) error

var commands = map[string]command{
	"whoami":     whoami,
	"orgs":       listOrgs,
	"switch":     switchOrg,
	"create-org": createOrg,
	"projects":   listProjects,
	"show":       showProject,
	"reorder":    reorderDocuments,
	"write":      writeDocument,
}

// session carries what every command needs.
type session struct {
	api  *client.Client
	out  io.Writer
	json bool
}

// run dispatches args and returns the process exit code.
func run(ctx context.Context, cfg cliConfig, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Error: missing command (see grantctl -h)")
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown command %q\n", args[0])
		return 2
	}
	if cfg.Token == "" {
		fmt.Fprintln(stderr, "Error: no session token (set -token or GRANTS_TOKEN)")
		return 2
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	s := &session{
		api:  client.New(cfg.BaseURL, cfg.Token, client.WithUserAgent("grantctl")),
		out:  stdout,
		json: cfg.JSON,
	}
	if err := cmd(ctx, s, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: wrong arguments for %s\n", args[0])
			return 2
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func need(args []string, n int) error {
	if len(args) < n {
		return errUsage
	}
	return nil
}

// emit prints v as JSON when requested, otherwise calls table.
func (s *session) emit(v any, table func(w *tabwriter.Writer)) error {
	if s.json {
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func whoami(ctx context.Context, s *session, _ []string) error {
	me, err := s.api.Me(ctx).Unwrap()
	if err != nil {
		return err
	}
	return s.emit(me, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "id\t%s\n", me.ID)
		fmt.Fprintf(w, "email\t%s\n", me.Email)
		fmt.Fprintf(w, "name\t%s\n", deref(me.FullName))
		fmt.Fprintf(w, "organization\t%s\n", deref(me.CurrentOrganizationID))
		fmt.Fprintf(w, "needs onboarding\t%t\n", me.NeedsOnboarding)
	})
}

func loadOrgs(ctx context.Context, s *session) (*orgctx.Context, error) {
	oc := orgctx.New(s.api)
	if err := oc.Load(ctx); err != nil {
		return nil, err
	}
	return oc, nil
}

func listOrgs(ctx context.Context, s *session, _ []string) error {
	oc, err := loadOrgs(ctx, s)
	if err != nil {
		return err
	}
	st := oc.State()
	return s.emit(st.Organizations, func(w *tabwriter.Writer) {
		if st.Phase == orgctx.NeedsOnboarding {
			fmt.Fprintln(w, "No organizations yet. Create one with: grantctl create-org <name>")
			return
		}
		fmt.Fprintln(w, "\tID\tNAME\tSLUG\tROLE")
		for _, o := range st.Organizations {
			mark := ""
			if st.Current != nil && st.Current.ID == o.ID {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, o.ID, o.Name, o.Slug, o.Role)
		}
	})
}

func switchOrg(ctx context.Context, s *session, args []string) error {
	if err := need(args, 1); err != nil {
		return err
	}
	oc, err := loadOrgs(ctx, s)
	if err != nil {
		return err
	}
	if err := oc.Switch(ctx, args[0]); err != nil {
		return err
	}
	cur, _ := oc.Current()
	return s.emit(cur, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Switched to %s (%s)\n", cur.Name, cur.Role)
	})
}

func createOrg(ctx context.Context, s *session, args []string) error {
	if err := need(args, 1); err != nil {
		return err
	}
	created, err := orgctx.New(s.api).Create(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return s.emit(created, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Created %s (slug %s, id %s)\n", created.Name, created.Slug, created.ID)
	})
}

func listProjects(ctx context.Context, s *session, _ []string) error {
	list := editor.NewProjectList(s.api)
	if err := list.Load(ctx); err != nil {
		return err
	}
	rows := list.Projects()
	return s.emit(rows, func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tFUNDER\tDEADLINE\tSTATUS\tDOCS")
		for _, p := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", p.ID, p.Name, deref(p.Funder), deref(p.Deadline), p.Status, p.DocumentsCount)
		}
	})
}

func openProject(ctx context.Context, s *session, projectID string) (*editor.ProjectView, error) {
	v := editor.NewProjectView(s.api, projectID)
	if err := v.Load(ctx); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func showProject(ctx context.Context, s *session, args []string) error {
	if err := need(args, 1); err != nil {
		return err
	}
	v, err := openProject(ctx, s, args[0])
	if err != nil {
		return err
	}
	defer v.Close()
	return printProject(s, v)
}

func printProject(s *session, v *editor.ProjectView) error {
	p, _ := v.Project()
	active, _ := v.Active()
	return s.emit(p, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Status)
		if p.Funder != nil || p.Deadline != nil {
			fmt.Fprintf(w, "%s\t%s\n", deref(p.Funder), deref(p.Deadline))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "\tORDER\tID\tTITLE\tCHARS")
		for _, d := range v.Documents() {
			mark := ""
			if d.ID == active.ID {
				mark = ">"
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\n", mark, d.SortOrder, d.ID, d.Title, len([]rune(d.Content)))
		}
	})
}

func reorderDocuments(ctx context.Context, s *session, args []string) error {
	if err := need(args, 2); err != nil {
		return err
	}
	v, err := openProject(ctx, s, args[0])
	if err != nil {
		return err
	}
	defer v.Close()
	if err := v.Reorder(ctx, args[1:]); err != nil {
		return err
	}
	return printProject(s, v)
}

func writeDocument(ctx context.Context, s *session, args []string) error {
	if err := need(args, 3); err != nil {
		return err
	}
	v, err := openProject(ctx, s, args[0])
	if err != nil {
		return err
	}
	defer v.Close()

	docID := args[1]
	if err := v.Select(docID); err != nil {
		return err
	}
	if err := v.UpdateContent(docID, strings.Join(args[2:], " ")); err != nil {
		return err
	}
	if err := v.Flush(ctx); err != nil {
		return err
	}
	doc, _ := v.Active()
	return s.emit(doc, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Saved %s (%s)\n", doc.Title, v.SaveStatus(docID))
	})
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// Compile-time checks that the client satisfies the consumers' interfaces.
var (
	_ orgctx.API         = (*client.Client)(nil)
	_ editor.ProjectAPI  = (*client.Client)(nil)
	_ editor.ProjectsAPI = (*client.Client)(nil)
)
