package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rankriot/rankriot/internal/common"
	"github.com/rankriot/rankriot/internal/interfaces"
	"github.com/rankriot/rankriot/internal/models"
)

const sitemapPriority = 80

// CrawlStats aggregates what one scan traversal produced
type CrawlStats struct {
	PagesScanned int
	LinksFound   int
	IssuesFound  int
}

// Coordinator runs one scan end to end: robots, sitemap discovery, the
// bounded worker pool, persistence, and progress counters.
type Coordinator struct {
	storage  interfaces.StorageManager
	fetcher  *Fetcher
	headless *HeadlessFetcher
	sitemaps *SitemapReader
	gate     *HostGate
	config   common.CrawlerConfig
	logger   arbor.ILogger
}

// NewCoordinator wires the crawl pipeline. The headless fetcher may be nil
// to disable JavaScript escalation.
func NewCoordinator(storage interfaces.StorageManager, cfg common.CrawlerConfig, logger arbor.ILogger) *Coordinator {
	fetcher := NewFetcher(cfg.Timeout, cfg.UserAgent, logger)
	fetcher.client.Transport = &http.Transport{
		MaxConnsPerHost:     4 * cfg.Concurrency,
		MaxIdleConnsPerHost: cfg.Concurrency,
	}
	return &Coordinator{
		storage:  storage,
		fetcher:  fetcher,
		headless: NewHeadlessFetcher(cfg.Timeout, cfg.UserAgent, logger),
		sitemaps: NewSitemapReader(fetcher.Client(), cfg.UserAgent, logger),
		gate:     NewHostGate(cfg.Delay),
		config:   cfg,
		logger:   logger,
	}
}

// Close releases the shared headless browser
func (c *Coordinator) Close() {
	if c.headless != nil {
		c.headless.Close()
	}
}

// Crawl traverses the project's site for one scan. It returns the
// aggregate counters; the scan row's status transition is the caller's
// responsibility. A cancelled context aborts the traversal.
func (c *Coordinator) Crawl(ctx context.Context, project *models.Project, scan *models.Scan) (*CrawlStats, error) {
	seed, ok := Canonicalize(project.URL, "")
	if !ok {
		return nil, fmt.Errorf("project %s has an unparseable URL %q", project.ID, project.URL)
	}

	policy := c.loadRobots(ctx, project, seed)

	if delay := policy.CrawlDelay(c.config.Delay); delay != c.config.Delay {
		if host := hostOf(seed); host != "" {
			c.gate.SetDelay(host, delay)
			c.logger.Info().Str("host", host).Str("delay", delay.String()).Msg("Applying robots crawl-delay")
		}
	}

	maxPages := project.EffectiveMaxPages(c.config.MaxPages)
	queue := NewCrawlQueue(maxPages)
	queue.Push(models.QueueItem{
		URL:      seed,
		Depth:    0,
		Priority: models.PriorityForDepth(0),
		AddedAt:  time.Now(),
	})

	if c.config.SitemapDiscover {
		for _, raw := range c.sitemaps.Discover(ctx, seed, policy.Sitemaps()) {
			canonical, ok := Canonicalize(raw, "")
			if !ok || !SameSite(canonical, seed) {
				continue
			}
			if c.config.RespectRobots && !policy.IsAllowed(canonical) {
				continue
			}
			queue.Push(models.QueueItem{
				URL:      canonical,
				Depth:    0,
				Priority: sitemapPriority,
				AddedAt:  time.Now(),
			})
		}
	}

	// Unblock workers parked on Pop when the scan is cancelled
	crawlCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-crawlCtx.Done()
		queue.Close()
	}()

	stats := &CrawlStats{}
	var statsMu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < c.config.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				item, err := queue.Pop()
				if err != nil {
					return
				}
				pageStats := c.processItem(crawlCtx, project, scan, policy, queue, item)
				queue.Done()
				if pageStats != nil {
					statsMu.Lock()
					stats.PagesScanned += pageStats.PagesScanned
					stats.LinksFound += pageStats.LinksFound
					stats.IssuesFound += pageStats.IssuesFound
					budgetHit := maxPages > 0 && stats.PagesScanned >= maxPages
					statsMu.Unlock()
					if budgetHit {
						queue.Pause()
					}
				}
			}
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	c.logger.Info().
		Str("scan_id", scan.ID).
		Int("pages", stats.PagesScanned).
		Int("links", stats.LinksFound).
		Int("issues", stats.IssuesFound).
		Msg("Crawl finished")
	return stats, nil
}

// loadRobots fetches and persists the project's robots policy. Fetch
// failures fall back to an open policy and the scan proceeds.
func (c *Coordinator) loadRobots(ctx context.Context, project *models.Project, seed string) *RobotsPolicy {
	if !c.config.RespectRobots {
		return NewRobotsPolicy(nil, c.config.UserAgent)
	}

	policy, err := FetchRobots(ctx, c.fetcher.Client(), seed, c.config.UserAgent)
	if err != nil {
		c.logger.Warn().Err(err).Str("project_id", project.ID).Msg("robots.txt unavailable, crawling with open policy")
		return policy
	}

	if err := c.storage.ProjectStorage().UpdateProjectRobots(ctx, project.ID, policy.Parsed()); err != nil {
		c.logger.Warn().Err(err).Str("project_id", project.ID).Msg("Failed to cache robots policy")
	}
	return policy
}

// processItem fetches, analyzes, and persists one URL, then enqueues its
// internal links. Returns nil when the URL was skipped.
func (c *Coordinator) processItem(ctx context.Context, project *models.Project, scan *models.Scan, policy *RobotsPolicy, queue *CrawlQueue, item models.QueueItem) *CrawlStats {
	if ctx.Err() != nil {
		return nil
	}

	if c.config.RespectRobots && !policy.IsAllowed(item.URL) {
		c.logger.Debug().Str("url", item.URL).Msg("Skipping robots-disallowed URL")
		return nil
	}

	if err := c.gate.Wait(ctx, item.URL); err != nil {
		return nil
	}

	result := c.fetcher.Fetch(ctx, item.URL)

	if result.FetchError == nil && result.NeedsHeadless() && c.headless != nil {
		rendered, loadMs, firstByteMs, err := c.headless.Render(ctx, item.URL)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", item.URL).Msg("Headless render failed, keeping HTTP result")
		} else if err := c.fetcher.ExtractFromHTML(rendered, result); err == nil {
			result.RenderedWithJS = true
			result.LoadTimeMs = loadMs
			if firstByteMs > 0 {
				result.FirstByteMs = firstByteMs
			}
		}
	}

	issues := Analyze(result)

	if _, err := c.persist(ctx, project, scan, result, issues); err != nil {
		c.logger.Error().Err(err).Str("url", item.URL).Msg("Failed to persist page")
		return nil
	}

	enqueued := 0
	for _, link := range result.Links {
		if link.Type != models.LinkTypeInternal || !link.Valid {
			continue
		}
		// Filtering disallowed URLs here keeps the page budget for
		// URLs that will actually be fetched
		if c.config.RespectRobots && !policy.IsAllowed(link.CanonicalURL) {
			continue
		}
		if queue.Push(models.QueueItem{
			URL:      link.CanonicalURL,
			Depth:    item.Depth + 1,
			Priority: models.PriorityForDepth(item.Depth + 1),
			Referrer: item.URL,
			AddedAt:  time.Now(),
		}) {
			enqueued++
		}
	}
	if enqueued > 0 {
		c.logger.Debug().Str("url", item.URL).Int("enqueued", enqueued).Msg("Discovered links")
	}

	return &CrawlStats{
		PagesScanned: 1,
		LinksFound:   len(result.Links),
		IssuesFound:  len(issues),
	}
}

// persist writes the page, its scan snapshot, links, and issues, then bumps
// the scan's live counters. Write order keeps foreign keys satisfied.
func (c *Coordinator) persist(ctx context.Context, project *models.Project, scan *models.Scan, result *PageResult, issues []models.Issue) (string, error) {
	now := time.Now()

	page := c.buildPage(project, result, now)

	existing, err := c.storage.PageStorage().FindPage(ctx, project.ID, page.URL)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return "", fmt.Errorf("find page: %w", err)
	}
	if existing != nil {
		page.ID = existing.ID
		page.CreatedAt = existing.CreatedAt
	}

	if err := c.storage.PageStorage().UpsertPage(ctx, page); err != nil {
		return "", fmt.Errorf("upsert page: %w", err)
	}

	for i := range issues {
		issues[i].ID = common.NewID()
		issues[i].ProjectID = project.ID
		issues[i].ScanID = scan.ID
		issues[i].PageID = page.ID
		issues[i].CreatedAt = now
	}

	snapshot := &models.ScanPageSnapshot{
		ID:           common.NewID(),
		ScanID:       scan.ID,
		PageID:       page.ID,
		ProjectID:    project.ID,
		URL:          page.URL,
		SnapshotData: snapshotData(page, result),
		Issues:       issues,
		CreatedAt:    now,
	}
	if err := c.storage.PageStorage().InsertScanSnapshot(ctx, snapshot); err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	links := buildLinks(project.ID, page.ID, result, now)
	if len(links) > 0 {
		if err := c.storage.LinkStorage().UpsertLinks(ctx, links); err != nil {
			return "", fmt.Errorf("upsert links: %w", err)
		}
	}

	if len(issues) > 0 {
		rows := make([]*models.Issue, len(issues))
		for i := range issues {
			rows[i] = &issues[i]
		}
		if err := c.storage.IssueStorage().InsertIssues(ctx, rows); err != nil {
			return "", fmt.Errorf("insert issues: %w", err)
		}
	}

	if err := c.storage.ScanStorage().IncrementScanProgress(ctx, scan.ID, 1, len(result.Links), len(issues)); err != nil {
		return "", fmt.Errorf("increment progress: %w", err)
	}

	return page.ID, nil
}

func (c *Coordinator) buildPage(project *models.Project, result *PageResult, now time.Time) *models.Page {
	indexable := !result.HasNoindex

	return &models.Page{
		ID:                common.NewPageID(),
		ProjectID:         project.ID,
		URL:               result.URL,
		Title:             result.Title,
		H1s:               result.H1s,
		H2s:               result.H2s,
		H3s:               result.H3s,
		MetaDescription:   result.MetaDesc,
		CanonicalURL:      result.CanonicalURL,
		HTTPStatus:        result.HTTPStatus,
		ContentType:       result.ContentType,
		ContentLength:     result.ContentLength,
		IsIndexable:       indexable,
		HasRobotsNoindex:  result.HasNoindex,
		HasRobotsNofollow: result.HasNofollow,
		RedirectURL:       result.RedirectURL,
		LoadTimeMs:        int64(result.LoadTimeMs),
		FirstByteTimeMs:   int64(result.FirstByteMs),
		SizeBytes:         result.SizeBytes,
		ImageCount:        result.ImageCount,
		JSCount:           result.JSCount,
		CSSCount:          result.CSSCount,
		OpenGraph:         result.OpenGraph,
		TwitterCard:       result.TwitterCard,
		StructuredData:    result.StructuredData,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func buildLinks(projectID, sourcePageID string, result *PageResult, now time.Time) []*models.PageLink {
	seen := make(map[string]bool, len(result.Links))
	links := make([]*models.PageLink, 0, len(result.Links))
	for _, link := range result.Links {
		dest := link.CanonicalURL
		if dest == "" {
			dest = link.RawURL
		}
		if dest == "" || seen[dest] {
			continue
		}
		seen[dest] = true

		links = append(links, &models.PageLink{
			ID:             common.NewID(),
			ProjectID:      projectID,
			SourcePageID:   sourcePageID,
			DestinationURL: dest,
			AnchorText:     link.AnchorText,
			LinkType:       link.Type,
			IsFollowed:     link.IsFollowed,
			CreatedAt:      now,
		})
	}
	return links
}

// snapshotData flattens the page record for the scan-scoped snapshot row
func snapshotData(page *models.Page, result *PageResult) map[string]interface{} {
	data := map[string]interface{}{
		"title":            page.Title,
		"meta_description": page.MetaDescription,
		"h1s":              page.H1s,
		"h2s":              page.H2s,
		"h3s":              page.H3s,
		"canonical_url":    page.CanonicalURL,
		"http_status":      page.HTTPStatus,
		"content_type":     page.ContentType,
		"is_indexable":     page.IsIndexable,
		"load_time_ms":     page.LoadTimeMs,
		"image_count":      page.ImageCount,
		"js_count":         page.JSCount,
		"css_count":        page.CSSCount,
		"rendered_with_js": result.RenderedWithJS,
	}
	if result.FetchError != nil {
		data["fetch_error"] = result.FetchError.Error()
	}
	return data
}
