package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"philcali.me/listsync/internal/data"
)

func printLists(w io.Writer, lists []data.ShoppingList, includeArchived bool) {
	shown := 0
	for _, list := range lists {
		if list.Archived && !includeArchived {
			continue
		}
		shown++
		flags := ""
		if list.Archived {
			flags += " (archived)"
		}
		if list.PendingSync {
			flags += " *"
		}
		fmt.Fprintf(w, "%s [%s]%s\n", list.Name, list.LogicalId, flags)
		for _, item := range list.Items {
			check := " "
			if item.Completed {
				check = "x"
			}
			line := fmt.Sprintf("  %d. [%s] %s", item.Position, check, item.Name)
			if item.Quantity != 1 {
				line += fmt.Sprintf(" x%g", item.Quantity)
			}
			if item.Category != "" {
				line += fmt.Sprintf(" (%s)", item.Category)
			}
			if item.PendingSync {
				line += " *"
			}
			fmt.Fprintf(w, "%s [%s]\n", line, item.LogicalId)
		}
	}
	if shown == 0 {
		fmt.Fprintln(w, "No lists.")
	}
}

func printJSON(w io.Writer, lists []data.ShoppingList) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(lists)
}

// findList matches a live list by id, then by case-insensitive name.
func findList(lists []data.ShoppingList, ref string) (data.ShoppingList, error) {
	for _, list := range lists {
		if list.LogicalId == ref {
			return list, nil
		}
	}
	for _, list := range lists {
		if strings.EqualFold(list.Name, ref) {
			return list, nil
		}
	}
	return data.ShoppingList{}, fmt.Errorf("no list named %q", ref)
}

func findItem(list data.ShoppingList, ref string) (data.ShoppingItem, error) {
	for _, item := range list.Items {
		if item.LogicalId == ref {
			return item, nil
		}
	}
	for _, item := range list.Items {
		if strings.EqualFold(item.Name, ref) {
			return item, nil
		}
	}
	return data.ShoppingItem{}, fmt.Errorf("no item named %q in %s", ref, list.Name)
}
