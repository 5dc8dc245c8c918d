package llm

import (
	"context"
	"strings"
)

// ListFreeModels returns the IDs of remote models tagged ":free", in the
// order the service lists them.
func ListFreeModels(ctx context.Context, client Client) ([]string, error) {
	list, err := client.ListModels(ctx)
	if err != nil {
		return nil, classify(err)
	}
	var ids []string
	for _, m := range list.Models {
		if strings.Contains(m.ID, ":free") {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}
