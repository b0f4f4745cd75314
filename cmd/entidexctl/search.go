package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	entidex "github.com/kailas-cloud/entidex/pkg/sdk"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "search <request.json>",
		Short: "Run a search request and print the result page",
		Long: `Search runs a request in the same JSON form POST /api/search accepts and
prints the response. Pass "-" to read the request from stdin. With --all the
continuation tokens are followed and every match is printed, one per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readRequest(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			client, _, logger, err := root.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			defer client.Close()

			out := cmd.OutOrStdout()
			if !all {
				page, err := client.SearchJSON(cmd.Context(), body)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(pageOutput(page))
			}

			for {
				page, err := client.SearchJSON(cmd.Context(), body)
				if err != nil {
					return err
				}
				for _, item := range page.Items {
					if _, err := fmt.Fprintf(out, "%s\n", item); err != nil {
						return err
					}
				}
				if !page.HasMore() {
					return nil
				}
				if body, err = withToken(body, page.ContinuationToken); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "follow continuation tokens and print every match")
	return cmd
}

func readRequest(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read request: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(filepath.Clean(name))
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return b, nil
}

// withToken sets continuationToken on a request body, keeping the rest.
func withToken(body []byte, token string) ([]byte, error) {
	var req map[string]json.RawMessage
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	tok, err := json.Marshal(token)
	if err != nil {
		return nil, err
	}
	req["continuationToken"] = tok
	return json.Marshal(req)
}

type facetOutput struct {
	Field   string         `json:"field"`
	Buckets []bucketOutput `json:"buckets"`
}

type bucketOutput struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type searchOutput struct {
	Items             []json.RawMessage `json:"items"`
	ContinuationToken *string           `json:"continuationToken"`
	Count             int               `json:"count"`
	TotalCount        *int64            `json:"totalCount,omitempty"`
	Facets            []facetOutput     `json:"facets,omitempty"`
}

// pageOutput mirrors the HTTP search response.
func pageOutput(p entidex.Page) searchOutput {
	out := searchOutput{Items: p.Items, Count: len(p.Items), TotalCount: p.TotalCount}
	if out.Items == nil {
		out.Items = []json.RawMessage{}
	}
	if p.HasMore() {
		tok := p.ContinuationToken
		out.ContinuationToken = &tok
	}
	for _, f := range p.Facets {
		fo := facetOutput{Field: f.Field, Buckets: make([]bucketOutput, len(f.Buckets))}
		for i, b := range f.Buckets {
			fo.Buckets[i] = bucketOutput{Value: b.Value, Count: b.Count}
		}
		out.Facets = append(out.Facets, fo)
	}
	return out
}
