// Package resolver maps URI-shaped resource locators onto read operations of
// an api.API.
//
// Each registered collection type T exposes two locators:
//
//	T://list  lists every record of T
//	T://{id}  returns the record of T stored under id
//
// The resolver is read-only; nothing can be created, updated or deleted
// through a locator.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/localrivet/resourcemcp/internal/api"
	"github.com/localrivet/resourcemcp/internal/errortypes"
)

const (
	// SchemeSeparator separates the collection type from the path.
	SchemeSeparator = "://"

	// ListPath is the path of the collection listing locator.
	ListPath = "list"

	// MIMEType is the content type of every resolved resource.
	MIMEType = "application/json"
)

// DefaultCollections are the collection types registered when none are given.
var DefaultCollections = []string{"users", "products", "orders"}

// ResourceInfo describes a static resource such as T://list.
type ResourceInfo struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate describes a parameterised resource such as T://{id}.
type ResourceTemplate struct {
	Name        string `json:"name"`
	URITemplate string `json:"uriTemplate"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// Content is one piece of a resolved resource.
type Content struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// ReadResult is the result of resolving a locator.
type ReadResult struct {
	Contents []Content `json:"contents"`
}

// Locator is a parsed resource locator.
type Locator struct {
	Collection string
	// ID is empty for listing locators.
	ID string
}

// IsList reports whether l addresses a collection listing.
func (l Locator) IsList() bool {
	return l.ID == ""
}

// String returns the canonical form of l.
func (l Locator) String() string {
	if l.IsList() {
		return ListURI(l.Collection)
	}
	return ItemURI(l.Collection, l.ID)
}

// ListURI returns the listing locator of collection.
func ListURI(collection string) string {
	return collection + SchemeSeparator + ListPath
}

// ItemURI returns the per-id locator of collection.
func ItemURI(collection, id string) string {
	return collection + SchemeSeparator + id
}

// TemplateURI returns the per-id locator template of collection.
func TemplateURI(collection string) string {
	return collection + SchemeSeparator + "{id}"
}

// Parse splits uri into collection and id. The trailing segment after the
// scheme separator is the id, or the listing marker. A locator without the
// separator, with an empty scheme or with an empty trailing segment fails
// with INVALID_URI.
func Parse(uri string) (Locator, error) {
	scheme, rest, ok := strings.Cut(uri, SchemeSeparator)
	if !ok || scheme == "" || rest == "" {
		return Locator{}, errortypes.InvalidURI(uri)
	}
	if rest == ListPath {
		return Locator{Collection: scheme}, nil
	}
	return Locator{Collection: scheme, ID: rest}, nil
}

// Resolver dispatches locators of the registered collection types to an API.
type Resolver struct {
	api         api.API
	collections []string
	registered  map[string]bool
}

// New creates a Resolver over a for the given collection types. With no
// collections, DefaultCollections are registered.
func New(a api.API, collections ...string) *Resolver {
	if len(collections) == 0 {
		collections = DefaultCollections
	}
	r := &Resolver{
		api:        a,
		registered: make(map[string]bool, len(collections)),
	}
	for _, c := range collections {
		if c == "" || r.registered[c] {
			continue
		}
		r.registered[c] = true
		r.collections = append(r.collections, c)
	}
	return r
}

// Collections returns the registered collection types in registration order.
func (r *Resolver) Collections() []string {
	return append([]string(nil), r.collections...)
}

// Resources lists the static listing resource of every collection type.
func (r *Resolver) Resources() []ResourceInfo {
	out := make([]ResourceInfo, 0, len(r.collections))
	for _, c := range r.collections {
		out = append(out, ResourceInfo{
			Name:        fmt.Sprintf("List all %s", c),
			URI:         ListURI(c),
			Description: fmt.Sprintf("Returns all %s in the collection", c),
			MIMEType:    MIMEType,
		})
	}
	return out
}

// Templates lists the per-id template of every collection type.
func (r *Resolver) Templates() []ResourceTemplate {
	out := make([]ResourceTemplate, 0, len(r.collections))
	for _, c := range r.collections {
		out = append(out, ResourceTemplate{
			Name:        fmt.Sprintf("Get %s by ID", c),
			URITemplate: TemplateURI(c),
			Description: fmt.Sprintf("Returns a specific %s by its ID", c),
			MIMEType:    MIMEType,
		})
	}
	return out
}

// HasResource reports whether uri is a well-formed locator of a registered
// collection type. It does not check that the record exists.
func (r *Resolver) HasResource(uri string) bool {
	loc, err := Parse(uri)
	if err != nil {
		return false
	}
	return r.registered[loc.Collection]
}

// Resolve parses uri and dispatches it: listing locators to List with no
// query, per-id locators to Get. Locators of unregistered collection types
// fail with INVALID_URI.
func (r *Resolver) Resolve(ctx context.Context, uri string) (ReadResult, error) {
	loc, err := Parse(uri)
	if err != nil {
		return ReadResult{}, err
	}
	if !r.registered[loc.Collection] {
		return ReadResult{}, errortypes.InvalidURI(uri)
	}

	var payload any
	if loc.IsList() {
		items, err := r.api.List(ctx, loc.Collection, nil)
		if err != nil {
			return ReadResult{}, err
		}
		payload = items
	} else {
		item, err := r.api.Get(ctx, loc.Collection, loc.ID)
		if err != nil {
			return ReadResult{}, err
		}
		payload = item
	}

	text, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return ReadResult{}, errortypes.InternalError(err, "failed to encode resource").WithField("uri", uri)
	}

	return ReadResult{
		Contents: []Content{{
			URI:      uri,
			MIMEType: MIMEType,
			Text:     string(text),
		}},
	}, nil
}
