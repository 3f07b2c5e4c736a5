package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/imrishuroy/pos-orderflow/internal/pos"
)

type printer struct {
	w      io.Writer
	format string
}

func newOutput(w io.Writer, format string) (*printer, error) {
	switch format {
	case "table", "json", "yaml":
		return &printer{w: w, format: format}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
}

// print renders v as JSON or YAML, or the rows as an aligned table.
func (p *printer) print(v any, header []string, rows [][]string) error {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

type typeView struct {
	GUID  string `json:"guid" yaml:"guid"`
	Name  string `json:"name" yaml:"name"`
	Price string `json:"price" yaml:"price"`
}

type itemView struct {
	Group string     `json:"group" yaml:"group"`
	GUID  string     `json:"guid" yaml:"guid"`
	Name  string     `json:"name" yaml:"name"`
	Price string     `json:"price,omitempty" yaml:"price,omitempty"`
	Types []typeView `json:"types,omitempty" yaml:"types,omitempty"`
}

type supplementView struct {
	Category string `json:"category" yaml:"category"`
	GUID     string `json:"guid" yaml:"guid"`
	Name     string `json:"name" yaml:"name"`
	Price    string `json:"price,omitempty" yaml:"price,omitempty"`
}

// itemViews flattens the catalog. Recipe-based items list their recipe types
// when no plain types are present. An empty group keeps every group.
func itemViews(groups []pos.MenuGroup, group string) []itemView {
	var out []itemView
	for _, g := range groups {
		if group != "" && g.Name != group {
			continue
		}
		for _, it := range g.ItemList {
			v := itemView{Group: g.Name, GUID: it.GUID, Name: it.Name, Price: nullPrice(it.Price)}
			types := it.TypeList
			if len(types) == 0 {
				types = it.RecipeTypeList
			}
			for _, t := range types {
				v.Types = append(v.Types, typeView{GUID: t.GUID, Name: t.Name, Price: t.Price.String()})
			}
			out = append(out, v)
		}
	}
	return out
}

func supplementViews(cats []pos.SupplementCategory) []supplementView {
	var out []supplementView
	for _, c := range cats {
		for _, s := range c.ItemList {
			out = append(out, supplementView{Category: c.Name, GUID: s.GUID, Name: s.Name, Price: nullPrice(s.DefaultPrice)})
		}
	}
	return out
}

func nullPrice(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
