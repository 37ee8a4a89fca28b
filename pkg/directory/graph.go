package directory

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	sserr "github.com/StricklySoft/stricklysoft-gateway/pkg/errors"
)

const (
	// Authorities are the names of every group reachable over MEMBER_OF,
	// so nested groups grant their parents' authorities.
	userAttributesCypher = `
MATCH (u:User {username: $username})
OPTIONAL MATCH (u)-[:MEMBER_OF*1..]->(g:Group)
RETURN u.disabled AS disabled, collect(DISTINCT g.name) AS authorities`

	createUserCypher = `
MERGE (u:User {username: $username})
ON CREATE SET u.disabled = false`
)

// GraphClient is the part of the neo4j client the directory needs.
type GraphClient interface {
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)
	Health(ctx context.Context) error
}

// Graph resolves users stored as (:User) nodes linked to (:Group) nodes.
type Graph struct {
	client GraphClient
}

var _ Directory = (*Graph)(nil)

// NewGraph returns a directory over client.
func NewGraph(client GraphClient) *Graph {
	return &Graph{client: client}
}

// UserAttributes implements Directory.
func (g *Graph) UserAttributes(ctx context.Context, username string) (Attributes, error) {
	records, err := g.client.ExecuteRead(ctx, userAttributesCypher, map[string]any{"username": username})
	if err != nil {
		return Attributes{}, err
	}
	if len(records) == 0 {
		return Missing(), nil
	}

	rec := records[0]
	attrs := Attributes{NotExists: ptr(false)}

	if raw, ok := rec.Get("disabled"); ok && raw != nil {
		disabled, isBool := raw.(bool)
		if !isBool {
			return Attributes{}, sserr.Internalf("directory: user %q has non-boolean disabled flag %T", username, raw)
		}
		attrs.Disabled = &disabled
	}

	if raw, ok := rec.Get("authorities"); ok && raw != nil {
		list, isList := raw.([]any)
		if !isList {
			return Attributes{}, sserr.Internalf("directory: unexpected authorities type %T for %q", raw, username)
		}
		attrs.Authorities = make([]string, 0, len(list))
		for _, v := range list {
			attrs.Authorities = append(attrs.Authorities, fmt.Sprint(v))
		}
	}
	return attrs, nil
}

// CreateUser implements Directory.
func (g *Graph) CreateUser(ctx context.Context, username string) error {
	_, err := g.client.ExecuteWrite(ctx, createUserCypher, map[string]any{"username": username})
	return err
}

// Available implements Directory.
func (g *Graph) Available(ctx context.Context) bool {
	return g.client.Health(ctx) == nil
}
