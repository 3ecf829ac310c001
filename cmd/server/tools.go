package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rhuss/chatrelay/pkg/tools"
)

type toolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Parameters  any    `json:"parameters,omitempty"`
}

func runTools(ctx context.Context, out io.Writer, asJSON bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	reg, mcpSource, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer mcpSource.Close()

	return printTools(out, reg, asJSON)
}

func printTools(out io.Writer, reg *tools.Registry, asJSON bool) error {
	var infos []toolInfo
	for _, name := range reg.Names() {
		t, _ := reg.Get(name)
		info := toolInfo{Name: t.Name, Description: t.Description, Source: t.Source}
		if t.Parameters != nil {
			info.Parameters = t.Parameters
		}
		infos = append(infos, info)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Name, info.Source, info.Description)
	}
	return tw.Flush()
}
