package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/pos-orderflow/internal/menu"
	"github.com/imrishuroy/pos-orderflow/internal/pos"
)

type printerFunc func(cmd *cobra.Command) (*printer, error)

func shopsCmd(newPrinter printerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "shops",
		Short: "List storefronts; use a guid as YT_SHOP_GUID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			shops, err := client.ListShops(cmd.Context())
			if err != nil {
				return fmt.Errorf("list shops: %w", err)
			}
			rows := make([][]string, 0, len(shops))
			for _, s := range shops {
				rows = append(rows, []string{s.GUID, s.Name, s.Type, s.CityName})
			}
			return out.print(shops, []string{"GUID", "NAME", "TYPE", "CITY"}, rows)
		},
	}
}

func groupsCmd(newPrinter printerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List menu groups of the configured storefront",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			groups, err := client.MenuGroups(cmd.Context())
			if err != nil {
				return fmt.Errorf("list groups: %w", err)
			}
			rows := make([][]string, 0, len(groups))
			for _, g := range groups {
				rows = append(rows, []string{g.GUID, g.Name, g.ParentGUID})
			}
			return out.print(groups, []string{"GUID", "NAME", "PARENT"}, rows)
		},
	}
}

func itemsCmd(newPrinter printerFunc) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List catalog items with their prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			groups, err := client.MenuItems(cmd.Context())
			if err != nil {
				return fmt.Errorf("list items: %w", err)
			}
			views := itemViews(groups, group)
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Group, v.GUID, v.Name, v.Price})
				for _, t := range v.Types {
					rows = append(rows, []string{v.Group, t.GUID, "  " + t.Name, t.Price})
				}
			}
			return out.print(views, []string{"GROUP", "GUID", "NAME", "PRICE"}, rows)
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Only list items of this top-level group")
	return cmd
}

func supplementsCmd(newPrinter printerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "supplements",
		Short: "List modifier categories and their items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newPrinter(cmd)
			if err != nil {
				return err
			}
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			cats, err := client.Supplements(cmd.Context())
			if err != nil {
				return fmt.Errorf("list supplements: %w", err)
			}
			views := supplementViews(cats)
			var rows [][]string
			for _, v := range views {
				rows = append(rows, []string{v.Category, v.GUID, v.Name, v.Price})
			}
			return out.print(views, []string{"CATEGORY", "GUID", "NAME", "PRICE"}, rows)
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify configuration and fetch the menu once the way the service does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			fmt.Fprintln(w, "Configuration:")
			fmt.Fprintf(w, "  POS:       %s\n", cfg.POSBaseURL)
			fmt.Fprintf(w, "  Shop:      %s\n", valueOrDefault(cfg.POSShopGUID, "not set"))
			fmt.Fprintf(w, "  Gateway:   %s\n", configured(cfg.GatewayConfigured()))
			fmt.Fprintf(w, "  Bot:       %s\n", configured(cfg.BotToken != "" && cfg.BotSecret != ""))
			fmt.Fprintf(w, "  Web app:   %s\n", valueOrDefault(cfg.WebAppURL, "not set"))
			fmt.Fprintf(w, "  Storage:   %s\n", cfg.StoreBackend)

			if client.ShopGUID() == "" {
				return pos.ErrShopNotConfigured
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.POSTimeout)
			defer cancel()
			r := menu.NewRefresher(client, cfg.MenuGroupName, cfg.MenuRefreshInterval)
			if err := r.Refresh(ctx); err != nil {
				return fmt.Errorf("menu refresh: %w", err)
			}
			snap, _ := r.Snapshot()
			fmt.Fprintln(w, "\nMenu:")
			fmt.Fprintf(w, "  Group:       %s (%d items)\n", snap.Group.Name, len(snap.Group.ItemList))
			fmt.Fprintf(w, "  Supplements: %d categories\n", len(snap.Supplements))
			return nil
		},
	}
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func valueOrDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
