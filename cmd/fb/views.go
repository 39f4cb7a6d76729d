package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/flowboard/internal/client"
	"github.com/alfredjeanlab/flowboard/internal/ui"
)

var activeCmd = &cobra.Command{
	Use:     "active",
	Short:   "Show the active-work timeline and this/last week's issues",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		strict, _ := cmd.Flags().GetBool("strict")
		view, _ := cmd.Flags().GetString("view")

		resp, err := dashClient.ActiveWork(cmd.Context(), &client.ActiveWorkRequest{
			Scope:  scope(),
			Query:  query,
			Strict: strict,
			View:   view,
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, resp)
		}
		printActiveWork(os.Stdout, resp, ui.Width())
		return nil
	},
}

var completedCmd = &cobra.Command{
	Use:     "completed",
	Short:   "Show items completed in each of the last weeks",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		weeks, _ := cmd.Flags().GetInt("weeks")
		resp, err := dashClient.Completed(cmd.Context(), scope(), weeks)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, resp)
		}
		printCompleted(os.Stdout, resp, ui.Width())
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:     "validate <query>",
	Short:   "Check a search query against the current issues",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := dashClient.ValidateQuery(cmd.Context(), scope(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, resp)
		}
		if resp.Valid {
			fmt.Printf("%s %s\n", ui.RenderAccent("valid"), resp.Parsed)
			return nil
		}
		fmt.Println(ui.RenderHeader("invalid query"))
		printProblems(os.Stdout, resp.Problems)
		return fmt.Errorf("query %q is not valid", args[0])
	},
}

var viewsCmd = &cobra.Command{
	Use:     "views",
	Short:   "List saved search views",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		views, err := dashClient.ListViews(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, views)
		}
		printViews(os.Stdout, views)
		return nil
	},
}

var viewsSaveCmd = &cobra.Command{
	Use:   "save <name> <query>",
	Short: "Save a search view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := dashClient.SaveView(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, v)
		}
		fmt.Printf("Saved view %s\n", v.Name)
		return nil
	},
}

var viewsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved search view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dashClient.DeleteView(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted view %s\n", args[0])
		return nil
	},
}

func init() {
	activeCmd.Flags().StringP("query", "q", "", "search query filtering the timeline")
	activeCmd.Flags().Bool("strict", false, "only accept fields and values present in the data")
	activeCmd.Flags().String("view", "", "use the query of a saved view")
	activeCmd.MarkFlagsMutuallyExclusive("query", "view")

	completedCmd.Flags().IntP("weeks", "w", 0, "number of weeks to show (default 2)")

	viewsCmd.AddCommand(viewsSaveCmd)
	viewsCmd.AddCommand(viewsDeleteCmd)
}
