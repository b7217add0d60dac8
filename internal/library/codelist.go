package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"eapgraph/internal/model"
)

var ErrNotFound = errors.New("codelist not found")

var packageRe = regexp.MustCompile(`^/mdr/ct/packages/([a-z\-]+)-(\d{4}-\d{2}-\d{2})`)

type packageIndex struct {
	Links struct {
		Packages []struct {
			Href  string `json:"href"`
			Title string `json:"title"`
		} `json:"packages"`
	} `json:"_links"`
}

// LatestPackage возвращает href самого свежего пакета домена. Результат,
// в том числе ошибка, запоминается на всё время жизни клиента.
func (c *Client) LatestPackage(ctx context.Context, domain string) (string, error) {
	if href, ok := c.packages[domain]; ok {
		return href, nil
	}
	if err, ok := c.failed[domain]; ok {
		return "", err
	}

	href, err := c.discover(ctx, domain)
	if err != nil {
		err = fmt.Errorf("package discovery for %s: %w", domain, err)
		c.failed[domain] = err
		c.log.Error("terminology domain unavailable", "domain", domain, "err", err)
		return "", err
	}
	c.packages[domain] = href
	c.log.Info("terminology package selected", "domain", domain, "package", href)
	return href, nil
}

// loadIndex загружает индекс пакетов один раз на клиента; ошибка
// тоже запоминается
func (c *Client) loadIndex(ctx context.Context) (*packageIndex, error) {
	if c.index != nil || c.indexErr != nil {
		return c.index, c.indexErr
	}
	body, err := c.get(ctx, "/mdr/ct/packages")
	if err != nil {
		c.indexErr = err
		return nil, err
	}
	var idx packageIndex
	if err := json.Unmarshal(body, &idx); err != nil {
		c.indexErr = fmt.Errorf("decode package index: %w", err)
		return nil, c.indexErr
	}
	c.index = &idx
	return c.index, nil
}

func (c *Client) discover(ctx context.Context, domain string) (string, error) {
	idx, err := c.loadIndex(ctx)
	if err != nil {
		return "", err
	}
	var bestHref, bestDate string
	for _, p := range idx.Links.Packages {
		m := packageRe.FindStringSubmatch(p.Href)
		if m == nil || m[1] != domain {
			continue
		}
		// даты ISO: строковое сравнение совпадает с хронологическим
		if m[2] > bestDate {
			bestDate, bestHref = m[2], p.Href
		}
	}
	if bestHref == "" {
		return "", fmt.Errorf("no packages for domain %q", domain)
	}
	return bestHref, nil
}

// flexBool принимает и "true", и true
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	*b = flexBool(string(data) == "true")
	return nil
}

type termPayload struct {
	ConceptID       string   `json:"conceptId"`
	SubmissionValue string   `json:"submissionValue"`
	PreferredTerm   string   `json:"preferredTerm"`
	Definition      string   `json:"definition"`
	Synonyms        []string `json:"synonyms"`
}

type codelistPayload struct {
	termPayload
	Extensible flexBool      `json:"extensible"`
	Terms      []termPayload `json:"terms"`
}

func (p *codelistPayload) toCodeList() *model.CodeList {
	cl := &model.CodeList{
		Code:            p.ConceptID,
		SubmissionValue: p.SubmissionValue,
		PreferredTerm:   p.PreferredTerm,
		Definition:      p.Definition,
		Synonyms:        p.Synonyms,
		Extensible:      bool(p.Extensible),
		Source:          "remote",
	}
	for _, t := range p.Terms {
		cl.Add(model.PermissibleValue{
			Code:            t.ConceptID,
			SubmissionValue: t.SubmissionValue,
			PreferredTerm:   t.PreferredTerm,
			Synonyms:        t.Synonyms,
			Definition:      t.Definition,
		})
	}
	return cl
}

// CodeList ищет codelist по домену в порядке приоритета; первый успешный
// ответ выигрывает. Домены с неудачным discovery пропускаются.
func (c *Client) CodeList(ctx context.Context, code string) (*model.CodeList, error) {
	for _, domain := range c.cfg.Domains {
		href, err := c.LatestPackage(ctx, domain)
		if err != nil {
			continue
		}
		body, err := c.get(ctx, href+"/codelists/"+url.PathEscape(code))
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.IsNotFound() {
				c.log.Debug("codelist not in domain", "code", code, "domain", domain)
			} else {
				c.log.Warn("codelist request failed", "code", code, "domain", domain, "err", err)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		var p codelistPayload
		if err := json.Unmarshal(body, &p); err != nil {
			c.log.Warn("codelist payload invalid", "code", code, "domain", domain, "err", err)
			continue
		}
		if p.ConceptID == "" {
			p.ConceptID = code
		}
		return p.toCodeList(), nil
	}
	return nil, fmt.Errorf("%s: %w", code, ErrNotFound)
}
