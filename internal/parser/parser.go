// Package parser turns free-form proxy lists into deduplicated sets of
// validated proxies.
package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/August26/proxyline/internal/logging"
	"github.com/August26/proxyline/internal/model"
	"github.com/August26/proxyline/internal/pattern"
)

const defaultPort = 80

// Parser recognises proxies in text. Two grammars are tried on every line:
//
//	ip:port                                 (loose, DefaultScheme applied)
//	[scheme://]host[:port][:user:pass]      (general)
//
// Hostnames are resolved on the calling goroutine while parsing.
type Parser struct {
	Builder       model.Builder
	DefaultScheme model.Scheme
	Logger        *slog.Logger
}

// New returns a Parser. A nil logger discards output.
func New(b model.Builder, defaultScheme model.Scheme, logger *slog.Logger) *Parser {
	return &Parser{Builder: b, DefaultScheme: defaultScheme, Logger: logger}
}

// ParseOne parses line with the default Parser.
func ParseOne(line string) (model.Proxy, error) {
	return (&Parser{}).ParseOne(context.Background(), line)
}

// ParseAll parses lines with the default Parser.
func ParseAll(lines []string) *model.Set {
	return (&Parser{}).ParseAll(context.Background(), lines)
}

func (p *Parser) log() *slog.Logger {
	if p.Logger == nil {
		return logging.Discard()
	}
	return p.Logger
}

func (p *Parser) defaultScheme() model.Scheme {
	if !p.DefaultScheme.Valid() {
		return model.SchemeHTTP
	}
	return p.DefaultScheme
}

// ParseOne applies the general grammar. A missing or unknown scheme becomes
// HTTP and a missing port becomes 80.
func (p *Parser) ParseOne(ctx context.Context, line string) (model.Proxy, error) {
	m, ok := pattern.MatchProxy(line)
	if !ok {
		return model.Proxy{}, &model.ParseError{Line: line}
	}

	port := defaultPort
	if m.Port != "" {
		n, err := strconv.Atoi(m.Port)
		if err != nil {
			return model.Proxy{}, fmt.Errorf("port %q: %w", m.Port, &model.ParseError{Line: line})
		}
		port = n
	}

	return p.Builder.Build(ctx, m.Host, port, model.ParseScheme(m.Scheme), model.Credentials{
		User:     m.User,
		Password: m.Password,
	})
}

// ParseIPPort applies the loose grammar and tags the result with
// DefaultScheme.
func (p *Parser) ParseIPPort(ctx context.Context, line string) (model.Proxy, error) {
	m, ok := pattern.MatchIPPort(line)
	if !ok {
		return model.Proxy{}, &model.ParseError{Line: line}
	}
	return p.Builder.Build(ctx, m.Host, m.Port, p.defaultScheme(), model.Credentials{})
}

// ParseAll runs both grammars over every line and returns the union. Lines
// that neither grammar accepts are dropped.
func (p *Parser) ParseAll(ctx context.Context, lines []string) *model.Set {
	out := model.NewSet()
	for _, line := range lines {
		loose, lerr := p.ParseIPPort(ctx, line)
		if lerr == nil {
			out.Add(loose)
		}
		general, gerr := p.ParseOne(ctx, line)
		if gerr == nil {
			out.Add(general)
		}
		if lerr != nil && gerr != nil {
			p.log().Debug("line dropped", "line", line, "err", gerr)
		}
	}
	return out
}

// ParseAllIPPort runs only the loose grammar.
func (p *Parser) ParseAllIPPort(ctx context.Context, lines []string) *model.Set {
	out := model.NewSet()
	for _, line := range lines {
		pr, err := p.ParseIPPort(ctx, line)
		if err != nil {
			p.log().Debug("line dropped", "line", line, "err", err)
			continue
		}
		out.Add(pr)
	}
	return out
}

// ReadFrom reads r line by line and parses it with ParseAll. Surrounding
// whitespace is stripped; empty lines and lines starting with '#' are
// ignored.
func (p *Parser) ReadFrom(ctx context.Context, r io.Reader) (*model.Set, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	return p.ParseAll(ctx, lines), nil
}

// ReadFile is ReadFrom over the file at path.
func (p *Parser) ReadFile(ctx context.Context, path string) (*model.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()
	return p.ReadFrom(ctx, f)
}

// ReadIPPortFile reads the file at path and parses it with ParseAllIPPort.
func (p *Parser) ReadIPPortFile(ctx context.Context, path string) (*model.Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	lines, err := readLines(f)
	if err != nil {
		return nil, err
	}
	return p.ParseAllIPPort(ctx, lines), nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return out, nil
}
