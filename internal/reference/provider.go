package reference

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"eapgraph/internal/library"
	"eapgraph/internal/model"
)

// Remote: удалённый источник codelist'ов
type Remote interface {
	CodeList(ctx context.Context, code string) (*model.CodeList, error)
}

// Provider разрешает коды codelist'ов: кэш -> локальные каталоги -> удалённый
// сервис. В кэш попадают и найденные коды, и промахи, поэтому каждый код
// запрашивается удалённо не больше одного раза. Не потокобезопасен:
// один Provider на одну загрузку.
type Provider struct {
	remote Remote
	local  map[string]*model.CodeList
	cache  map[string]*model.CodeList // nil: запомненный промах
	log    *slog.Logger

	remoteCalls int
}

// NewProvider: remote может быть nil, тогда только локальные каталоги
func NewProvider(remote Remote, log *slog.Logger) *Provider {
	return &Provider{
		remote: remote,
		local:  map[string]*model.CodeList{},
		cache:  map[string]*model.CodeList{},
		log:    log,
	}
}

// AddLocal регистрирует локальные codelist'ы; CNEW не регистрируется
func (p *Provider) AddLocal(lists map[string]*model.CodeList) {
	for code, cl := range lists {
		if code == model.CNEW || cl == nil {
			continue
		}
		p.local[code] = cl
	}
}

// RemoteCalls: сколько раз провайдер ходил в удалённый сервис
func (p *Provider) RemoteCalls() int { return p.remoteCalls }

// Resolve возвращает codelist для дескриптора. Внешние ссылки, "N" и
// неразобранные дескрипторы никогда не уходят в удалённый поиск.
func (p *Provider) Resolve(ctx context.Context, d Descriptor) (*model.CodeList, bool) {
	if !d.HasValueList || d.Code == "" {
		return nil, false
	}
	return p.Lookup(ctx, d.Code)
}

// Lookup разрешает код. CNEW: локальная заглушка без сетевых вызовов.
func (p *Provider) Lookup(ctx context.Context, code string) (*model.CodeList, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false
	}
	if cl, ok := p.cache[code]; ok {
		return cl, cl != nil
	}

	var cl *model.CodeList
	switch {
	case code == model.CNEW:
		cl = model.NewCodeListPlaceholder()
	case p.local[code] != nil:
		cl = p.local[code]
	case p.remote != nil:
		p.remoteCalls++
		got, err := p.remote.CodeList(ctx, code)
		switch {
		case err == nil:
			cl = got
		case errors.Is(err, library.ErrNotFound):
			p.log.Error("codelist not found", "code", code)
		default:
			p.log.Error("codelist lookup failed", "code", code, "err", err)
		}
	default:
		p.log.Warn("codelist not found locally, remote lookup disabled", "code", code)
	}
	p.cache[code] = cl
	return cl, cl != nil
}
