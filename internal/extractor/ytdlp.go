package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lrstanley/go-ytdlp"
	"github.com/rs/zerolog/log"

	"github.com/vidfetch/api/internal/config"
)

const (
	outputTemplate   = "%(title)s.%(ext)s"
	progressInterval = 500 * time.Millisecond
	notAvailable     = "N/A"
)

// YtDlp drives the yt-dlp binary through go-ytdlp
type YtDlp struct {
	cfg config.ExtractorConfig
}

// NewYtDlp creates an extractor with the given download options
func NewYtDlp(cfg config.ExtractorConfig) *YtDlp {
	return &YtDlp{cfg: cfg}
}

// Install makes sure a yt-dlp binary is available, downloading one into the
// user cache when it is not on PATH.
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

// Probe reads the title and duration of url
func (y *YtDlp) Probe(ctx context.Context, url string) (*Info, error) {
	cmd := ytdlp.New().
		SkipDownload().
		DumpJSON()
	if y.cfg.CookiesFromBrowser != "" {
		cmd.CookiesFromBrowser(y.cfg.CookiesFromBrowser)
	}

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to extract info: %w", err)
	}

	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to parse info: %w", err)
	}
	if len(infos) == 0 {
		return nil, errors.New("no media found at url")
	}

	info := &Info{Title: "Unknown"}
	if infos[0].Title != nil && *infos[0].Title != "" {
		info.Title = *infos[0].Title
	}
	if infos[0].Duration != nil {
		info.Duration = *infos[0].Duration
	}
	return info, nil
}

// Download fetches url into dir, reporting progress to hook
func (y *YtDlp) Download(ctx context.Context, url, dir string, hook Hook) (*Result, error) {
	cmd := ytdlp.New().
		Format(y.cfg.Format).
		Output(filepath.Join(dir, outputTemplate)).
		PrintJSON()
	if y.cfg.MergeFormat != "" {
		cmd.MergeOutputFormat(y.cfg.MergeFormat)
	}
	if y.cfg.WriteThumbnail {
		cmd.WriteThumbnail()
	}
	if y.cfg.WriteSubs {
		cmd.WriteSubs()
		if y.cfg.SubLangs != "" {
			cmd.SubLangs(y.cfg.SubLangs)
		}
	}
	if y.cfg.CookiesFromBrowser != "" {
		cmd.CookiesFromBrowser(y.cfg.CookiesFromBrowser)
	}

	var (
		mu       sync.Mutex
		finished string
	)
	cmd.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		p := toProgress(update, time.Now())
		if p.Status == "" {
			return
		}
		if p.Status == StatusFinished {
			mu.Lock()
			finished = p.Filename
			mu.Unlock()
		}
		hook(p)
	})

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	result := &Result{}
	if infos, err := res.GetExtractedInfo(); err == nil && len(infos) > 0 && infos[0].Filename != nil {
		result.Filename = *infos[0].Filename
	} else {
		log.Debug().Err(err).Str("url", url).Msg("no extracted info, using last finished file")
		mu.Lock()
		result.Filename = finished
		mu.Unlock()
	}
	if result.Filename == "" {
		return nil, errors.New("download produced no file")
	}
	return result, nil
}

// toProgress renders a go-ytdlp update the way yt-dlp prints its progress
// line. Updates other than downloading/finished yield a zero Progress.
func toProgress(update ytdlp.ProgressUpdate, now time.Time) Progress {
	switch string(update.Status) {
	case string(StatusDownloading):
		p := Progress{
			Status:  StatusDownloading,
			Percent: notAvailable,
			Speed:   notAvailable,
			ETA:     notAvailable,
		}
		if update.TotalBytes > 0 {
			p.Percent = fmt.Sprintf("%5.1f%%", float64(update.DownloadedBytes)/float64(update.TotalBytes)*100)
		}
		if !update.Started.IsZero() {
			if elapsed := now.Sub(update.Started); elapsed > 0 && update.DownloadedBytes > 0 {
				bps := float64(update.DownloadedBytes) / elapsed.Seconds()
				p.Speed = humanize.IBytes(uint64(bps)) + "/s"
				if update.TotalBytes > update.DownloadedBytes {
					remaining := float64(update.TotalBytes-update.DownloadedBytes) / bps
					p.ETA = formatETA(time.Duration(remaining * float64(time.Second)))
				}
			}
		}
		return p
	case string(StatusFinished):
		return Progress{Status: StatusFinished, Filename: update.Filename}
	default:
		return Progress{}
	}
}

// formatETA prints d as MM:SS, or HH:MM:SS past an hour
func formatETA(d time.Duration) string {
	if d < 0 {
		return notAvailable
	}
	secs := int(d.Round(time.Second).Seconds())
	h, m, s := secs/3600, (secs%3600)/60, secs%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
