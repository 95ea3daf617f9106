package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"philcali.me/listsync/internal/coordinator"
	"philcali.me/listsync/internal/data"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Show the lists of the signed in account or the guest",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		asJSON, _ := cmd.Flags().GetBool("json")
		app := openApp(cmd.Context())
		defer app.Close()
		lists := app.Coordinator.Lists()
		if asJSON {
			return printJSON(cmd.OutOrStdout(), lists)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", app.Coordinator.Scope())
		printLists(cmd.OutOrStdout(), lists, all)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Create and change lists",
}

// mutateList resolves the list reference and applies fn to it.
func mutateList(cmd *cobra.Command, ref string, fn func(*coordinator.Coordinator, data.ShoppingList) ([]data.ShoppingList, error)) error {
	app := openApp(cmd.Context())
	defer app.Close()
	list, err := findList(app.Coordinator.Lists(), ref)
	if err != nil {
		return err
	}
	lists, err := fn(app.Coordinator, list)
	if err != nil {
		return err
	}
	app.Coordinator.Wait()
	printLists(cmd.OutOrStdout(), lists, true)
	return nil
}

var listCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := openApp(cmd.Context())
		defer app.Close()
		lists, err := app.Coordinator.CreateList(args[0])
		if err != nil {
			return err
		}
		app.Coordinator.Wait()
		printLists(cmd.OutOrStdout(), lists, true)
		return nil
	},
}

var listRenameCmd = &cobra.Command{
	Use:   "rename LIST NAME",
	Short: "Rename a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateList(cmd, args[0], func(c *coordinator.Coordinator, list data.ShoppingList) ([]data.ShoppingList, error) {
			return c.UpdateList(list.LogicalId, coordinator.ListChanges{Name: &args[1]})
		})
	},
}

var listArchiveCmd = &cobra.Command{
	Use:   "archive LIST",
	Short: "Archive a list, or restore it with --undo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")
		return mutateList(cmd, args[0], func(c *coordinator.Coordinator, list data.ShoppingList) ([]data.ShoppingList, error) {
			return c.ArchiveList(list.LogicalId, !undo)
		})
	},
}

var listDuplicateCmd = &cobra.Command{
	Use:   "duplicate LIST",
	Short: "Copy a list and its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateList(cmd, args[0], func(c *coordinator.Coordinator, list data.ShoppingList) ([]data.ShoppingList, error) {
			return c.DuplicateList(list.LogicalId)
		})
	},
}

var listDeleteCmd = &cobra.Command{
	Use:   "delete LIST",
	Short: "Delete a list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateList(cmd, args[0], func(c *coordinator.Coordinator, list data.ShoppingList) ([]data.ShoppingList, error) {
			return c.DeleteList(list.LogicalId)
		})
	},
}

func init() {
	listsCmd.Flags().Bool("all", false, "Include archived lists")
	listsCmd.Flags().Bool("json", false, "Print the lists as JSON")
	listArchiveCmd.Flags().Bool("undo", false, "Restore an archived list")
	listCmd.AddCommand(listCreateCmd, listRenameCmd, listArchiveCmd, listDuplicateCmd, listDeleteCmd)
	rootCmd.AddCommand(listsCmd, listCmd)
}
