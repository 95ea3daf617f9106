package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"philcali.me/listsync/internal/coordinator"
	"philcali.me/listsync/internal/data"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Add and change items on a list",
}

func mutateItem(cmd *cobra.Command, listRef string, itemRef string, changes func(data.ShoppingItem) (coordinator.ItemChanges, error)) error {
	return mutateList(cmd, listRef, func(c *coordinator.Coordinator, list data.ShoppingList) ([]data.ShoppingList, error) {
		item, err := findItem(list, itemRef)
		if err != nil {
			return nil, err
		}
		update, err := changes(item)
		if err != nil {
			return nil, err
		}
		return c.UpdateItem(list.LogicalId, item.LogicalId, update)
	})
}

var itemAddCmd = &cobra.Command{
	Use:   "add LIST NAME",
	Short: "Add an item to the end of a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		quantity, _ := cmd.Flags().GetFloat32("qty")
		category, _ := cmd.Flags().GetString("category")
		input := coordinator.ItemInput{Name: args[1], Quantity: quantity, Category: category}
		if cmd.Flags().Changed("photo") {
			photo, _ := cmd.Flags().GetString("photo")
			input.PhotoURL = &photo
		}
		return mutateList(cmd, args[0], func(c *coordinator.Coordinator, list data.ShoppingList) ([]data.ShoppingList, error) {
			return c.CreateItem(list.LogicalId, input)
		})
	},
}

var itemDoneCmd = &cobra.Command{
	Use:   "done LIST ITEM",
	Short: "Check off an item, or uncheck it with --undo",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		undo, _ := cmd.Flags().GetBool("undo")
		completed := !undo
		return mutateItem(cmd, args[0], args[1], func(data.ShoppingItem) (coordinator.ItemChanges, error) {
			return coordinator.ItemChanges{Completed: &completed}, nil
		})
	},
}

var itemRenameCmd = &cobra.Command{
	Use:   "rename LIST ITEM NAME",
	Short: "Rename an item",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateItem(cmd, args[0], args[1], func(data.ShoppingItem) (coordinator.ItemChanges, error) {
			return coordinator.ItemChanges{Name: &args[2]}, nil
		})
	},
}

var itemMoveCmd = &cobra.Command{
	Use:   "move LIST ITEM POSITION",
	Short: "Swap an item with the one at POSITION",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		position, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("position must be a number: %w", err)
		}
		return mutateItem(cmd, args[0], args[1], func(data.ShoppingItem) (coordinator.ItemChanges, error) {
			return coordinator.ItemChanges{Position: &position}, nil
		})
	},
}

var itemDeleteCmd = &cobra.Command{
	Use:   "delete LIST ITEM",
	Short: "Remove an item from a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateList(cmd, args[0], func(c *coordinator.Coordinator, list data.ShoppingList) ([]data.ShoppingList, error) {
			item, err := findItem(list, args[1])
			if err != nil {
				return nil, err
			}
			return c.DeleteItem(list.LogicalId, item.LogicalId)
		})
	},
}

func init() {
	itemAddCmd.Flags().Float32("qty", 1, "Quantity to buy")
	itemAddCmd.Flags().String("category", "", "Aisle or category")
	itemAddCmd.Flags().String("photo", "", "Photo URL")
	itemDoneCmd.Flags().Bool("undo", false, "Mark the item as not done")
	itemCmd.AddCommand(itemAddCmd, itemDoneCmd, itemRenameCmd, itemMoveCmd, itemDeleteCmd)
	rootCmd.AddCommand(itemCmd)
}
