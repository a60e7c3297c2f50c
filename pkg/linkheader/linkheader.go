// Package linkheader parses RFC 8288 style Link headers as sent by paginated
// REST APIs, e.g.
//
//	<https://host/api/v1/courses/1/users?page=2&per_page=10>; rel="next", <...>; rel="last"
package linkheader

import (
	"fmt"
	"strings"
)

// Link is a single entry of a Link header.
type Link struct {
	URL    string
	Rels   []string
	Params map[string]string
}

// HasRel reports whether the link is tagged with the relation name.
func (l Link) HasRel(rel string) bool {
	for _, r := range l.Rels {
		if strings.EqualFold(r, rel) {
			return true
		}
	}
	return false
}

// Parse splits a Link header into its entries. An empty header yields no links.
func Parse(header string) ([]Link, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}

	var links []Link
	for _, raw := range strings.Split(header, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		link, err := parseEntry(raw)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

// Find returns the URL of the first link tagged with rel.
func Find(links []Link, rel string) (string, bool) {
	for _, l := range links {
		if l.HasRel(rel) {
			return l.URL, true
		}
	}
	return "", false
}

// Next returns the URL tagged rel="next". A malformed header has no next link.
func Next(header string) (string, bool) {
	links, err := Parse(header)
	if err != nil {
		return "", false
	}
	return Find(links, "next")
}

func parseEntry(raw string) (Link, error) {
	segments := strings.Split(raw, ";")
	target := strings.TrimSpace(segments[0])
	if len(target) < 2 || target[0] != '<' || target[len(target)-1] != '>' {
		return Link{}, fmt.Errorf("link header: target %q not enclosed in angle brackets", target)
	}

	link := Link{
		URL:    strings.TrimSpace(target[1 : len(target)-1]),
		Params: make(map[string]string, len(segments)-1),
	}
	if link.URL == "" {
		return Link{}, fmt.Errorf("link header: empty target in %q", raw)
	}

	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		key, value, found := strings.Cut(seg, "=")
		if !found {
			return Link{}, fmt.Errorf("link header: parameter %q has no value", seg)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.Trim(strings.TrimSpace(value), `"`)
		link.Params[key] = value
		if key == "rel" {
			link.Rels = append(link.Rels, strings.Fields(value)...)
		}
	}

	return link, nil
}
