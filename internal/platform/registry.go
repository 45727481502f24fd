package platform

import (
	"fmt"
	"sort"
	"sync"

	"jobscrape/internal/config"
	"jobscrape/internal/errs"
	"jobscrape/internal/logging"
)

// CrawlerFactoryFunc builds a Crawler from the merged run configuration.
type CrawlerFactoryFunc func(merged config.Merged) (Crawler, error)

// ParserFactoryFunc builds a Parser. Parsers take no configuration.
type ParserFactoryFunc func() (Parser, error)

// binding ties a platform identifier to its factories and default
// config. A platform is registered only if all three artifacts -
// crawler, parser, and config - are present; the factories are not run
// until CreateCrawler/CreateParser.
type binding struct {
	identifier     string
	newCrawler     CrawlerFactoryFunc
	newParser      ParserFactoryFunc
	defaultsConfig map[string]string
}

var (
	registryMu sync.Mutex
	registry   = map[string]binding{}
)

// Register joins a platform to the process-wide registry. Platforms call
// this from an init() function in their package, a compile-time join in
// place of filesystem discovery. A platform missing any of the three
// artifacts is rejected with a warning rather than a panic.
func Register(identifier string, newCrawler CrawlerFactoryFunc, newParser ParserFactoryFunc, defaultsConfig map[string]string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	logger := logging.Get()

	if identifier == "" || len(identifier) > 0 && identifier[0] == '_' {
		logger.Warn().Str("identifier", identifier).Msg("platform registration skipped: invalid identifier")
		return
	}
	if newCrawler == nil || newParser == nil || defaultsConfig == nil {
		logger.Warn().Str("identifier", identifier).Msg("platform registration skipped: missing crawler, parser, or config artifact")
		return
	}

	registry[identifier] = binding{
		identifier:     identifier,
		newCrawler:     newCrawler,
		newParser:      newParser,
		defaultsConfig: defaultsConfig,
	}
}

// registryFactory implements Factory over the compile-time registry.
type registryFactory struct {
	defaults config.DefaultsConfig
}

// NewFactory returns a Factory backed by every platform registered via
// Register so far. SupportedPlatforms is deterministic over a sorted
// identifier list.
func NewFactory(defaults config.DefaultsConfig) Factory {
	return &registryFactory{defaults: defaults}
}

func (f *registryFactory) SupportedPlatforms() []string {
	registryMu.Lock()
	defer registryMu.Unlock()

	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *registryFactory) lookup(identifier string) (binding, error) {
	registryMu.Lock()
	b, ok := registry[identifier]
	registryMu.Unlock()
	if !ok {
		return binding{}, fmt.Errorf("%w: %s", errs.ErrUnsupportedPlatform, identifier)
	}
	return b, nil
}

func (f *registryFactory) CreateCrawler(identifier string, runConfig config.Merged) (Crawler, error) {
	b, err := f.lookup(identifier)
	if err != nil {
		return nil, err
	}

	crawler, err := b.newCrawler(runConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrPlatformContract, identifier, err)
	}
	if crawler == nil {
		return nil, fmt.Errorf("%w: %s: crawler factory returned nil", errs.ErrPlatformLoad, identifier)
	}
	return crawler, nil
}

func (f *registryFactory) CreateParser(identifier string) (Parser, error) {
	b, err := f.lookup(identifier)
	if err != nil {
		return nil, err
	}

	parser, err := b.newParser()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrPlatformContract, identifier, err)
	}
	if parser == nil {
		return nil, fmt.Errorf("%w: %s: parser factory returned nil", errs.ErrPlatformLoad, identifier)
	}
	return parser, nil
}

// MergeRunConfig resolves the full precedence chain for a platform:
// global defaults -> that platform's registered defaults config -> the
// run's own overrides.
func (f *registryFactory) MergeRunConfig(identifier string, run config.RunConfig) (config.Merged, error) {
	b, err := f.lookup(identifier)
	if err != nil {
		return config.Merged{}, err
	}
	return config.MergeConfig(f.defaults, b.defaultsConfig, run), nil
}
