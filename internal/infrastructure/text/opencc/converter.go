package opencc

import (
	"fmt"
	"strings"

	occ "github.com/longbridgeapp/opencc"
)

const DefaultScheme = "s2t"

// Converter rewrites simplified Chinese in generated answers to traditional script.
type Converter struct {
	scheme string
	cc     *occ.OpenCC
}

func New(scheme string) (*Converter, error) {
	scheme = strings.TrimSpace(scheme)
	if scheme == "" {
		scheme = DefaultScheme
	}
	cc, err := occ.New(scheme)
	if err != nil {
		return nil, fmt.Errorf("load opencc scheme %q: %w", scheme, err)
	}
	return &Converter{scheme: scheme, cc: cc}, nil
}

func (c *Converter) Convert(text string) (string, error) {
	if text == "" {
		return text, nil
	}
	out, err := c.cc.Convert(text)
	if err != nil {
		return "", fmt.Errorf("opencc %s convert: %w", c.scheme, err)
	}
	return out, nil
}
