// Copyright Chatstream Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package websearch backs the gateway's built-in web_search tool with an
// external search API.
package websearch

import (
	"context"

	"github.com/larook/chatstream-gw/pkg/provider"
)

// SearchResult represents a single web search result.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider performs web searches against an external API.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// Providers is the registry of search backend factories. Brave and Tavily
// register themselves via init().
var Providers = provider.NewRegistry[Provider]("web_search")
