package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `atelier mirrors each shopper's recently viewed products.

- get_recently_viewed returns up to 10 products, most recent first.
- record_product_view moves a catalog product to the front of the history.
- clear_recently_viewed empties the history.

Products must exist in the catalog snapshot before they can be recorded.
See atelier://docs/history for the ordering rules.
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "atelier://docs/history",
		Name:        "docs_history",
		Title:       "Recently viewed history",
		Description: "Ordering, capacity and reconciliation rules for the recently viewed list.",
		Content: `# Recently viewed history

- The list holds at most 10 products and never the same product twice.
- Viewing a product again moves it to the front and refreshes its snapshot.
- Storefronts keep a local copy. When a shopper is signed in and this
  mirror returns a non-empty list, it replaces the local copy wholesale.
- Clearing removes every entry for the signed-in shopper only.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
