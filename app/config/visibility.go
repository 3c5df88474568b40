package config

import (
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Visibility is the audience of a status as Mastodon names it.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(s))); v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate, VisibilityDirect:
		return v, nil
	default:
		return "", oops.With("visibility", s).Errorf("unknown visibility")
	}
}

func (v Visibility) String() string {
	return string(v)
}

func (v *Visibility) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseVisibility(node.Value)
	if err != nil {
		return err
	}

	*v = parsed
	return nil
}
