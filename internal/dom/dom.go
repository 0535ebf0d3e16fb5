// Package dom extracts prompt units from HTML documents using CSS selectors.
package dom

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/dgallion1/ragutil/internal/apperr"
	"github.com/dgallion1/ragutil/internal/parser"
	"github.com/dgallion1/ragutil/internal/unit"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
)

// DefaultIDAttribute is read when Config.IDAttribute is blank.
const DefaultIDAttribute = "id"

// Config selects the items and how each yields an id and a body.
type Config struct {
	ItemSelector        string `json:"itemSelector"`
	IDSelector          string `json:"idSelector,omitempty"`
	IDAttribute         string `json:"idAttr,omitempty"`
	DescriptionSelector string `json:"descSelector,omitempty"`
}

type compiled struct {
	item   cascadia.Selector
	id     cascadia.Selector // nil when absent
	desc   cascadia.Selector // nil when absent
	idAttr string
}

func (c Config) compile() (*compiled, error) {
	const op = "extract html"
	if strings.TrimSpace(c.ItemSelector) == "" {
		return nil, apperr.InvalidSelector(op, "item", c.ItemSelector, errors.New("empty selector"))
	}

	out := &compiled{idAttr: c.IDAttribute}
	if strings.TrimSpace(out.idAttr) == "" {
		out.idAttr = DefaultIDAttribute
	}

	var err error
	if out.item, err = cascadia.Compile(c.ItemSelector); err != nil {
		return nil, apperr.InvalidSelector(op, "item", c.ItemSelector, err)
	}
	if strings.TrimSpace(c.IDSelector) != "" {
		if out.id, err = cascadia.Compile(c.IDSelector); err != nil {
			return nil, apperr.InvalidSelector(op, "id", c.IDSelector, err)
		}
	}
	if strings.TrimSpace(c.DescriptionSelector) != "" {
		if out.desc, err = cascadia.Compile(c.DescriptionSelector); err != nil {
			return nil, apperr.InvalidSelector(op, "description", c.DescriptionSelector, err)
		}
	}
	return out, nil
}

// ExtractFile reads path as markup (rendering Markdown first) and extracts
// units from it.
func ExtractFile(path string, cfg Config) ([]unit.PromptUnit, error) {
	sel, err := cfg.compile()
	if err != nil {
		return nil, err
	}
	markup, err := parser.ReadMarkup(path)
	if err != nil {
		return nil, err
	}
	return sel.extract(strings.NewReader(markup))
}

// Extract emits one unit per item matched in document order. Items with an
// empty body are dropped.
func Extract(r io.Reader, cfg Config) ([]unit.PromptUnit, error) {
	sel, err := cfg.compile()
	if err != nil {
		return nil, err
	}
	return sel.extract(r)
}

func (c *compiled) extract(r io.Reader) ([]unit.PromptUnit, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, apperr.Wrap(eris.Wrap(err, "parse html"), apperr.KindIO, "extract html", "cannot parse document", "")
	}
	doc := goquery.NewDocumentFromNode(root)

	units := []unit.PromptUnit{}
	doc.FindMatcher(c.item).Each(func(i int, item *goquery.Selection) {
		body := c.body(item)
		if body == "" {
			return
		}
		units = append(units, unit.PromptUnit{ID: c.itemID(i, item), Body: body})
	})
	return units, nil
}

// itemID prefers the id attribute, then (with an id selector) the matched
// element's text, then the 1-based position.
func (c *compiled) itemID(i int, item *goquery.Selection) string {
	fallback := strconv.Itoa(i + 1)
	if c.id == nil {
		if v, ok := item.Attr(c.idAttr); ok {
			return v
		}
		return fallback
	}

	node := item.FindMatcher(c.id).First()
	if node.Length() == 0 {
		return fallback
	}
	if v, ok := node.Attr(c.idAttr); ok {
		return v
	}
	if t := strings.TrimSpace(node.Text()); t != "" {
		return t
	}
	return fallback
}

func (c *compiled) body(item *goquery.Selection) string {
	if c.desc != nil {
		var parts []string
		item.FindMatcher(c.desc).Each(func(_ int, s *goquery.Selection) {
			if t := strings.TrimSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) > 0 {
			return strings.Join(parts, "\n")
		}
	}
	return strings.TrimSpace(item.Text())
}
