package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"

	"github.com/skilldepot/skilldepot/internal/client"
)

var (
	app  = kingpin.New("skilldepot", "Client for the skilldepot skill store")
	addr = app.Flag("addr", "Server address").Default("http://localhost:3200").Envar("SKILLDEPOT_ADDR").String()

	listCmd      = app.Command("list", "List skills")
	listQuery    = listCmd.Flag("query", "Filter by name substring").String()
	listAll      = listCmd.Flag("all", "Include deactivated skills").Short('a').Bool()
	listDetailed = listCmd.Flag("detailed", "Show full metadata").Bool()
	listLimit    = listCmd.Flag("limit", "Maximum number of results").Int()

	showCmd     = app.Command("show", "Show one skill's metadata and file list")
	showRef     = showCmd.Arg("ref", "Skill id or name").Required().String()
	showVersion = showCmd.Flag("version", "Version number, latest if omitted").Int()

	catCmd     = app.Command("cat", "Print one file of a skill")
	catRef     = catCmd.Arg("ref", "Skill id or name").Required().String()
	catPath    = catCmd.Arg("path", "File path within the skill").Required().String()
	catVersion = catCmd.Flag("version", "Version number, latest if omitted").Int()

	importCmd     = app.Command("import", "Import skills from a zip archive")
	importArchive = importCmd.Arg("archive", "Path to the zip archive").Required().ExistingFile()
	importOnly    = importCmd.Flag("only", "Import only these skill names").Strings()
	importYes     = importCmd.Flag("yes", "Skip the preview confirmation").Short('y').Bool()

	activateCmd   = app.Command("activate", "Activate a skill")
	activateRef   = activateCmd.Arg("ref", "Skill id or name").Required().String()
	deactivateCmd = app.Command("deactivate", "Deactivate a skill")
	deactivateRef = deactivateCmd.Arg("ref", "Skill id or name").Required().String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := client.New(*addr)

	var err error
	switch command {
	case listCmd.FullCommand():
		err = runList(ctx, c)
	case showCmd.FullCommand():
		err = runShow(ctx, c)
	case catCmd.FullCommand():
		err = runCat(ctx, c)
	case importCmd.FullCommand():
		err = runImport(ctx, c)
	case activateCmd.FullCommand():
		err = runSetStatus(ctx, c, *activateRef, true)
	case deactivateCmd.FullCommand():
		err = runSetStatus(ctx, c, *deactivateRef, false)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runList(ctx context.Context, c *client.Client) error {
	entries, err := c.ListSkills(ctx, client.ListOptions{
		Query:        *listQuery,
		ShowInactive: *listAll,
		Detailed:     *listDetailed,
		Limit:        *listLimit,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No skills found.")
		return nil
	}
	name := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.Faint)
	for _, e := range entries {
		if *listDetailed {
			status := color.GreenString("active")
			if !e.Active {
				status = color.YellowString("inactive")
			}
			fmt.Printf("%s  v%d  %s\n", name.Sprint(e.Name), e.LatestVersion, status)
			fmt.Printf("  %s\n", e.Description)
			dim.Printf("  id=%s updated=%s\n", e.ID, e.UpdatedAt.Format("2006-01-02 15:04:05"))
		} else {
			fmt.Printf("%s  %s\n", name.Sprint(e.Name), e.Description)
		}
	}
	return nil
}

func runShow(ctx context.Context, c *client.Client) error {
	snap, err := c.GetSkill(ctx, *showRef, *showVersion)
	if err != nil {
		return err
	}
	name := color.New(color.FgCyan, color.Bold)
	status := color.GreenString("active")
	if !snap.Active {
		status = color.YellowString("inactive")
	}
	fmt.Printf("%s  v%d  %s\n", name.Sprint(snap.Name), snap.Version.VersionNumber, status)
	fmt.Printf("%s\n\n", snap.Description)
	fmt.Printf("id:         %s\n", snap.ID)
	fmt.Printf("created:    %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("updated:    %s\n", snap.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("created by: %s\n", snap.Version.CreatedBy)
	if snap.Version.Changelog != "" {
		fmt.Printf("changelog:  %s\n", snap.Version.Changelog)
	}
	fmt.Printf("\nFiles (%d):\n", len(snap.Files))
	for _, f := range snap.Files {
		marker := " "
		if f.IsExecutable {
			marker = color.YellowString("*")
		}
		if f.ScriptLanguage != "" {
			fmt.Printf(" %s %s (%s)\n", marker, f.Path, f.ScriptLanguage)
		} else {
			fmt.Printf(" %s %s\n", marker, f.Path)
		}
	}
	return nil
}

func runCat(ctx context.Context, c *client.Client) error {
	f, err := c.GetSkillFile(ctx, *catRef, *catPath, *catVersion)
	if err != nil {
		return err
	}
	fmt.Print(f.Content)
	if !strings.HasSuffix(f.Content, "\n") {
		fmt.Println()
	}
	return nil
}

func runImport(ctx context.Context, c *client.Client) error {
	archive, err := os.ReadFile(*importArchive)
	if err != nil {
		return err
	}
	parsed, err := c.ParseImport(ctx, filepath.Base(*importArchive), archive)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d skill folder(s):\n", len(parsed.Previews))
	valid := 0
	for _, p := range parsed.Previews {
		if p.Valid {
			valid++
			fmt.Printf("  %s %s (%d files)\n", color.GreenString("ok"), p.Name, p.FileCount)
		} else {
			fmt.Printf("  %s %s: %s\n", color.RedString("!!"), p.Name, strings.Join(p.Errors, "; "))
		}
	}
	if valid == 0 {
		return fmt.Errorf("archive contains no importable skills")
	}

	selected := *importOnly
	if len(selected) == 0 {
		for _, p := range parsed.Previews {
			if p.Valid {
				selected = append(selected, p.Name)
			}
		}
	}

	if !*importYes {
		fmt.Printf("\nImport %d skill(s)? [y/N] ", len(selected))
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	result, err := c.CommitImport(ctx, parsed.SessionID, selected)
	if err != nil {
		return err
	}
	for _, r := range result.Results {
		if r.Status == "success" {
			verb := "updated to"
			if r.IsNew {
				verb = "created at"
			}
			fmt.Printf("  %s %s %s v%d\n", color.GreenString("ok"), r.Name, verb, r.Version)
		} else {
			fmt.Printf("  %s %s: %s\n", color.RedString("!!"), r.Name, r.Error)
		}
	}
	fmt.Printf("Imported %d of %d skill(s).\n", result.Successful, result.Total)
	if result.Failed > 0 {
		return fmt.Errorf("%d skill(s) failed to import", result.Failed)
	}
	return nil
}

func runSetStatus(ctx context.Context, c *client.Client, ref string, active bool) error {
	sk, err := c.SetSkillStatus(ctx, ref, active)
	if err != nil {
		return err
	}
	if active {
		fmt.Printf("%s is now %s\n", sk.Name, color.GreenString("active"))
	} else {
		fmt.Printf("%s is now %s\n", sk.Name, color.YellowString("inactive"))
	}
	return nil
}
