package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/dgallion1/closereader/internal/annotation"
	"github.com/dgallion1/closereader/internal/argument"
)

const source = "closereader"

const upperHex = "0123456789ABCDEF"

// Segment encodes s as one key path segment. Letters, digits, '_' and '-'
// pass through; every other byte becomes ~XX. Distinct inputs never share
// a segment, so one user cannot land in another's namespace. The empty
// string is "~".
func Segment(s string) string {
	if s == "" {
		return "~"
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9', c == '_', c == '-':
			b.WriteByte(c)
		default:
			b.WriteByte('~')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0x0F])
		}
	}
	return b.String()
}

// AnnotationPrefix is the key under which a user's annotations of one text
// live.
func AnnotationPrefix(userID, textID string) string {
	return fmt.Sprintf("memory/users/%s/annotations/%s", Segment(userID), Segment(textID))
}

// AnnotationKey is the key of one annotation. Saving the same annotation
// twice overwrites it.
func AnnotationKey(userID, textID, annotationID string) string {
	return AnnotationPrefix(userID, textID) + "/" + Segment(annotationID)
}

// OutlineKey is the key of a user's argument outline.
func OutlineKey(userID string) string {
	return fmt.Sprintf("memory/users/%s/outline", Segment(userID))
}

// FetchAll returns every annotation the user saved for textID, oldest
// first. Entries that do not decode, or that belong to another text, are
// skipped.
func (c *Client) FetchAll(ctx context.Context, textID, userID string) ([]annotation.Annotation, error) {
	nodes, err := c.ListChildren(ctx, AnnotationPrefix(userID, textID), 0)
	if err != nil {
		return nil, fmt.Errorf("fetch annotations: %w", err)
	}
	out := make([]annotation.Annotation, 0, len(nodes))
	for _, n := range nodes {
		var a annotation.Annotation
		if err := json.Unmarshal(n.Value, &a); err != nil {
			continue
		}
		if a.ID == "" || a.TextID != textID {
			continue
		}
		out = append(out, a)
	}
	// Prefix scans come back in store order; later annotations win contested
	// highlight bands, so creation order has to be restored.
	slices.SortStableFunc(out, annotation.ByCreation)
	return out, nil
}

// SaveAnnotation writes one annotation under the user's namespace.
func (c *Client) SaveAnnotation(ctx context.Context, userID string, a annotation.Annotation) error {
	return c.PutNode(ctx, AnnotationKey(userID, a.TextID, a.ID), NodeRequest{
		Value:      a,
		MemoryType: "episodic",
		Salience:   0.6,
		Source:     source + ":" + a.TextID,
	})
}

// DeleteAnnotation removes one annotation.
func (c *Client) DeleteAnnotation(ctx context.Context, userID, textID, annotationID string) error {
	return c.DeleteNode(ctx, AnnotationKey(userID, textID, annotationID), false)
}

// SaveOutline writes the user's whole argument tree.
func (c *Client) SaveOutline(ctx context.Context, userID string, t argument.Tree) error {
	return c.PutNode(ctx, OutlineKey(userID), NodeRequest{
		Value:      t,
		MemoryType: "procedural",
		Salience:   0.5,
		Source:     source + ":outline",
	})
}

// FetchOutline returns the saved tree, or found=false when there is none.
func (c *Client) FetchOutline(ctx context.Context, userID string) (argument.Tree, bool, error) {
	node, err := c.GetNode(ctx, OutlineKey(userID))
	if err != nil {
		return argument.Tree{}, false, fmt.Errorf("fetch outline: %w", err)
	}
	if node == nil {
		return argument.Tree{}, false, nil
	}
	var t argument.Tree
	if err := json.Unmarshal(node.Value, &t); err != nil {
		return argument.Tree{}, false, fmt.Errorf("decode outline: %w", err)
	}
	return t, true, nil
}
