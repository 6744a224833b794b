package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/phased/internal/memory"
)

var (
	memType       string
	memTitle      string
	memContent    string
	memConcepts   []string
	memFacts      []string
	memFiles      []string
	memImportance float64
	memLimit      int
)

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memorySaveCmd)
	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryRecentCmd)
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memoryDeleteCmd)

	memorySaveCmd.Flags().StringVar(&memType, "type", "note", "entry type: decision, observation, note, todo, or session_summary")
	memorySaveCmd.Flags().StringVar(&memTitle, "title", "", "entry title (required)")
	memorySaveCmd.Flags().StringVar(&memContent, "content", "", "entry content; pass - to read stdin")
	memorySaveCmd.Flags().StringSliceVar(&memConcepts, "concept", nil, "concept tag (repeatable, at least one required)")
	memorySaveCmd.Flags().StringSliceVar(&memFacts, "fact", nil, "atomic fact (repeatable)")
	memorySaveCmd.Flags().StringSliceVar(&memFiles, "file", nil, "source file (repeatable)")
	memorySaveCmd.Flags().Float64Var(&memImportance, "importance", 0.5, "retrieval importance in [0,1]")
	_ = memorySaveCmd.MarkFlagRequired("title")

	memorySearchCmd.Flags().StringSliceVar(&memConcepts, "concept", nil, "concept filter (repeatable)")
	memorySearchCmd.Flags().IntVar(&memLimit, "limit", memory.DefaultSearchLimit, "maximum results")

	memoryRecentCmd.Flags().IntVar(&memLimit, "limit", memory.DefaultSearchLimit, "maximum results")
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Manage semantic workflow memory",
	Long: `Manage the semantic memory store.

Entries carry a type, concept tags, and an importance weight; search ranks
by embedding similarity blended with concept overlap and importance.
Entries saved while the embedding server is unreachable are kept and
indexed lazily on the next search.

Examples:
  # Save a decision
  phased memory save --type decision --title "Use SQLite for the queue" \
    --content "Postgres is overkill for a single-node deployment" \
    --concept storage --concept architecture

  # Search
  phased memory search "queue storage choice" --concept storage

  # Recent entries
  phased memory recent --limit 10`,
}

var memorySaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a memory entry",
	RunE:  runMemorySave,
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search memory by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemorySearch,
}

var memoryRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently saved entries",
	RunE:  runMemoryRecent,
}

var memoryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one memory entry in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryShow,
}

var memoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a memory entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runMemoryDelete,
}

func runMemorySave(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	svc, err := a.memories()
	if err != nil {
		return err
	}

	content := memContent
	if content == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		content = string(data)
	}

	entry, err := svc.Save(context.Background(), memory.SaveInput{
		Type:        memory.Type(memType),
		Title:       memTitle,
		Content:     content,
		Facts:       memFacts,
		Concepts:    memConcepts,
		Importance:  memImportance,
		SourceFiles: memFiles,
	})
	if err != nil {
		return fmt.Errorf("saving memory: %w", err)
	}

	if outputJSONFmt {
		return outputJSON(entry)
	}
	fmt.Printf("Memory saved: %s\n", entry.ID)
	return nil
}

func runMemorySearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	svc, err := a.memories()
	if err != nil {
		return err
	}

	results, err := svc.Search(context.Background(), memory.SearchRequest{
		Query:    args[0],
		Concepts: memConcepts,
		Limit:    memLimit,
	})
	if err != nil {
		return fmt.Errorf("searching memory: %w", err)
	}

	if outputJSONFmt {
		return outputJSON(results)
	}

	if len(results) == 0 {
		fmt.Println("No matching memories")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tID\tTYPE\tTITLE\tCONCEPTS")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\t%s\n",
			r.Score,
			truncate(r.Memory.ID, 12),
			r.Memory.Type,
			truncate(r.Memory.Title, 40),
			truncate(strings.Join(r.Memory.Concepts, ","), 30),
		)
	}
	return w.Flush()
}

func runMemoryRecent(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	svc, err := a.memories()
	if err != nil {
		return err
	}

	entries, err := svc.GetRecent(context.Background(), memLimit)
	if err != nil {
		return fmt.Errorf("listing memories: %w", err)
	}

	if outputJSONFmt {
		return outputJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No memories saved yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tCREATED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncate(e.ID, 12),
			e.Type,
			truncate(e.Title, 40),
			e.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

func runMemoryShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	svc, err := a.memories()
	if err != nil {
		return err
	}

	entry, err := svc.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	if outputJSONFmt {
		return outputJSON(entry)
	}

	fmt.Printf("ID: %s\n", entry.ID)
	fmt.Printf("Type: %s\n", entry.Type)
	fmt.Printf("Title: %s\n", entry.Title)
	fmt.Printf("Importance: %.2f\n", entry.Importance)
	fmt.Printf("Concepts: %s\n", strings.Join(entry.Concepts, ", "))
	if len(entry.Facts) > 0 {
		fmt.Printf("Facts:\n")
		for _, fact := range entry.Facts {
			fmt.Printf("  - %s\n", fact)
		}
	}
	if len(entry.SourceFiles) > 0 {
		fmt.Printf("Sources: %s\n", strings.Join(entry.SourceFiles, ", "))
	}
	fmt.Printf("Created: %s\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("\n%s\n", entry.Content)
	return nil
}

func runMemoryDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	svc, err := a.memories()
	if err != nil {
		return err
	}

	if err := svc.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted memory %s\n", args[0])
	return nil
}
