package discovery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	// inlineBackgroundPattern matches the first background url in a style attribute
	inlineBackgroundPattern = regexp.MustCompile(`(?i)background(?:-image)?\s*:\s*url\(['"]?([^'")]+)['"]?\)`)
	urlPattern              = regexp.MustCompile(`(?i)url\(['"]?([^'")]+)['"]?\)`)
	commentPattern          = regexp.MustCompile(`(?s)/\*.*?\*/`)
	// rulePattern matches innermost blocks, which flattens @media and @supports
	rulePattern = regexp.MustCompile(`([^{}]+)\{([^{}]*)\}`)
)

const noneValue = "none"

// styleRule is one qualified rule from a stylesheet
type styleRule struct {
	selector string
	// image is the declared background-image, "none", or empty when the rule
	// does not touch the background image at all
	image string
	// base resolves relative url() references, the stylesheet's own URL
	base *url.URL
}

// backgroundValue is the resolved background-image of one element
type backgroundValue struct {
	image string
	base  *url.URL
}

// parseStylesheet extracts rules that set a background image
func parseStylesheet(css string, base *url.URL) []styleRule {
	css = commentPattern.ReplaceAllString(css, "")

	var rules []styleRule
	for _, m := range rulePattern.FindAllStringSubmatch(css, -1) {
		selector := strings.TrimSpace(m[1])
		// A prelude following a nested block keeps the at-rule text, drop it
		if i := strings.LastIndexAny(selector, ";}"); i >= 0 {
			selector = strings.TrimSpace(selector[i+1:])
		}
		if selector == "" || strings.HasPrefix(selector, "@") {
			continue
		}

		image := declaredImage(m[2])
		if image == "" {
			continue
		}
		rules = append(rules, styleRule{selector: selector, image: image, base: base})
	}
	return rules
}

// declaredImage returns the background image set by a declaration block. The
// background shorthand resets the image to none when it carries no url().
func declaredImage(block string) string {
	image := ""
	for _, decl := range splitDeclarations(block) {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		value = strings.TrimSpace(strings.TrimSuffix(value, "!important"))

		switch name {
		case "background-image", "background":
			if m := urlPattern.FindString(value); m != "" {
				image = m
			} else {
				image = noneValue
			}
		}
	}
	return image
}

// splitDeclarations splits on semicolons outside of quotes and parentheses so
// that data: URLs survive intact.
func splitDeclarations(block string) []string {
	var (
		decls []string
		depth int
		quote rune
		start int
	)

	for i, r := range block {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ';' && depth == 0:
			decls = append(decls, block[start:i])
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(block[start:]); rest != "" {
		decls = append(decls, rest)
	}
	return decls
}

// cascade resolves the background image of every element matched by rules.
// Specificity is not computed: later rules win, inline styles win over all
// rules. Selectors that do not compile are skipped.
func cascade(doc *goquery.Document, rules []styleRule, docBase *url.URL) map[*html.Node]backgroundValue {
	values := make(map[*html.Node]backgroundValue)

	for _, rule := range rules {
		sel, err := cascadia.Compile(rule.selector)
		if err != nil {
			continue
		}
		doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
			values[s.Get(0)] = backgroundValue{image: rule.image, base: rule.base}
		})
	}

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if image := declaredImage(style); image != "" {
			values[s.Get(0)] = backgroundValue{image: image, base: docBase}
		}
	})

	return values
}

// extractURL returns the first url() reference in a CSS value
func extractURL(value string) string {
	if value == "" || value == noneValue {
		return ""
	}
	m := urlPattern.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}
