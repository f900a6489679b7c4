// Package rule maps routes to their freshness windows and cache-key
// variants. The freshness policy lives here and in the pipeline, never in
// the cache stores.
package rule

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type Rules []Rule

type Rule struct {
	re              *regexp.Regexp
	revalidateAfter time.Duration
	keyPrograms     []*vm.Program
}

// New compiles a route rule. The key expressions are evaluated against the
// request URL and their results become part of the cache key, so that
// variants of the same route (locale, selected query parameters) are cached
// independently. Example: `query("lang")`.
func New(pattern string, revalidateAfter time.Duration, keyExprs []string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("failed to parse regular expression for path pattern %s: %w",
			pattern, err)
	}

	var keyPrograms []*vm.Program

	for _, keyExpr := range keyExprs {
		keyProgram, err := expr.Compile(keyExpr)
		if err != nil {
			return Rule{}, fmt.Errorf("failed to compile cache key expression %q: %w",
				keyExpr, err)
		}

		keyPrograms = append(keyPrograms, keyProgram)
	}

	return Rule{
		re:              re,
		revalidateAfter: revalidateAfter,
		keyPrograms:     keyPrograms,
	}, nil
}

// Get returns the first rule matching the path, or nil when the path is not
// covered by any rule and therefore not cacheable.
func (rules Rules) Get(path string) *Rule {
	for _, rule := range rules {
		if rule.re.MatchString(path) {
			return &rule
		}
	}

	return nil
}

func (rule *Rule) RevalidateAfter() time.Duration {
	return rule.revalidateAfter
}

// CacheKey derives the cache key for a request URL: the route path plus the
// values of the rule's key expressions.
func (rule *Rule) CacheKey(requestURL *url.URL) (string, error) {
	env := map[string]any{
		"path": requestURL.Path,
		"query": func(name string) string {
			return requestURL.Query().Get(name)
		},
	}

	var variants []string

	for idx, keyProgram := range rule.keyPrograms {
		variantRaw, err := expr.Run(keyProgram, env)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate cache key expression: %w", err)
		}

		variant, ok := variantRaw.(string)
		if !ok {
			return "", fmt.Errorf("cache key expression %d should've evaluated to string, "+
				"got %T instead", idx, variantRaw)
		}

		if variant != "" {
			variants = append(variants, variant)
		}
	}

	if len(variants) == 0 {
		return requestURL.Path, nil
	}

	return requestURL.Path + "|" + strings.Join(variants, "|"), nil
}
