package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	waLog "go.mau.fi/whatsmeow/util/log"

	"github.com/vicentereig/yt-resolver/internal/commands"
	"github.com/vicentereig/yt-resolver/internal/config"
	"github.com/vicentereig/yt-resolver/internal/logging"
	"github.com/vicentereig/yt-resolver/internal/server"
)

var (
	// version is overridden at build time via -ldflags "-X main.version=X.Y.Z"
	version = "dev"
)

type appFactory func(cfg config.Config, log waLog.Logger) (*commands.App, error)

func defaultFactory(cfg config.Config, log waLog.Logger) (*commands.App, error) {
	return commands.NewApp(cfg, log, version)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, defaultFactory).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, `{"success":false,"data":null,"error":%q}`+"\n", err.Error())
		os.Exit(1)
	}
}

// cli holds what the persistent pre-run builds for every subcommand.
type cli struct {
	out     io.Writer
	factory appFactory

	configPath string
	overrides  config.Config

	cfg    config.Config
	log    waLog.Logger
	closer io.Closer
	app    *commands.App
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("ytdlp") {
		cfg.YtDlpPath = c.overrides.YtDlpPath
	}
	if flags.Changed("cookies-dir") {
		cfg.CookiesDir = c.overrides.CookiesDir
	}
	if flags.Changed("downloads-dir") {
		cfg.DownloadsDir = c.overrides.DownloadsDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.overrides.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = c.overrides.LogFile
	}
	c.cfg = cfg

	log, closer, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogBackups,
	})
	if err != nil {
		return err
	}
	c.log, c.closer = log, closer

	app, err := c.factory(cfg, log)
	if err != nil {
		closer.Close()
		return fmt.Errorf("failed to initialize: %w", err)
	}
	c.app = app
	return nil
}

func (c *cli) teardown(*cobra.Command, []string) {
	if c.app != nil {
		c.app.Close()
	}
	if c.closer != nil {
		c.closer.Close()
	}
}

func (c *cli) print(result string) {
	fmt.Fprintln(c.out, result)
}

func newRootCmd(out io.Writer, factory appFactory) *cobra.Command {
	c := &cli{out: out, factory: factory}

	root := &cobra.Command{
		Use:               "yt-resolver",
		Short:             "Resolve, inspect and download YouTube media",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		PersistentPostRun: c.teardown,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default ./config.yaml when present)")
	pf.StringVar(&c.overrides.YtDlpPath, "ytdlp", "", "yt-dlp binary")
	pf.StringVar(&c.overrides.CookiesDir, "cookies-dir", "", "directory of cookie files")
	pf.StringVar(&c.overrides.DownloadsDir, "downloads-dir", "", "download target directory")
	pf.StringVar(&c.overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&c.overrides.LogFile, "log-file", "", "log file")

	root.AddCommand(
		c.existsCmd(),
		c.detailsCmd(),
		c.sliderCmd(),
		c.trackCmd(),
		c.playlistCmd(),
		c.formatsCmd(),
		c.sizeCmd(),
		c.downloadCmd(),
		c.serveCmd(),
		c.versionCmd(),
	)
	return root
}

func (c *cli) existsCmd() *cobra.Command {
	var isID bool
	cmd := &cobra.Command{
		Use:   "exists LINK",
		Short: "Report whether a link points at YouTube",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.print(c.app.Exists(cmd.Context(), args[0], isID))
		},
	}
	cmd.Flags().BoolVar(&isID, "id", false, "treat LINK as a bare video id")
	return cmd
}

func (c *cli) detailsCmd() *cobra.Command {
	var isID bool
	cmd := &cobra.Command{
		Use:   "details LINK",
		Short: "Show title, duration and thumbnail of a video",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.print(c.app.Details(cmd.Context(), args[0], isID))
		},
	}
	cmd.Flags().BoolVar(&isID, "id", false, "treat LINK as a bare video id")
	return cmd
}

func (c *cli) sliderCmd() *cobra.Command {
	var (
		isID  bool
		index int
	)
	cmd := &cobra.Command{
		Use:   "slider QUERY",
		Short: "Pick one entry of a ten result search",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.print(c.app.Slider(cmd.Context(), args[0], index, isID))
		},
	}
	cmd.Flags().BoolVar(&isID, "id", false, "treat QUERY as a bare video id")
	cmd.Flags().IntVar(&index, "index", 0, "result index (0-9)")
	return cmd
}

func (c *cli) trackCmd() *cobra.Command {
	var isID bool
	cmd := &cobra.Command{
		Use:   "track LINK",
		Short: "Show the queue entry for a video",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.print(c.app.Track(cmd.Context(), args[0], isID))
		},
	}
	cmd.Flags().BoolVar(&isID, "id", false, "treat LINK as a bare video id")
	return cmd
}

func (c *cli) playlistCmd() *cobra.Command {
	var (
		isID   bool
		limit  int
		userID int64
	)
	cmd := &cobra.Command{
		Use:   "playlist LINK",
		Short: "List the video ids of a playlist",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.print(c.app.Playlist(cmd.Context(), args[0], limit, userID, isID))
		},
	}
	cmd.Flags().BoolVar(&isID, "id", false, "treat LINK as a bare playlist id")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum number of ids")
	cmd.Flags().Int64Var(&userID, "user-id", 0, "requesting user, for logs")
	return cmd
}

func (c *cli) formatsCmd() *cobra.Command {
	var isID, table bool
	cmd := &cobra.Command{
		Use:   "formats LINK",
		Short: "List downloadable formats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if table {
				return c.app.FormatsTable(cmd.Context(), c.out, args[0], isID)
			}
			c.print(c.app.Formats(cmd.Context(), args[0], isID))
			return nil
		},
	}
	cmd.Flags().BoolVar(&isID, "id", false, "treat LINK as a bare video id")
	cmd.Flags().BoolVar(&table, "table", false, "render a table instead of JSON")
	return cmd
}

func (c *cli) sizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size LINK",
		Short: "Sum the reported size of every format",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.print(c.app.Size(cmd.Context(), args[0]))
		},
	}
}

func (c *cli) downloadCmd() *cobra.Command {
	var (
		isID            bool
		kind            string
		formatID, title string
	)
	cmd := &cobra.Command{
		Use:   "download LINK",
		Short: "Download audio or video",
		Long: `Download audio or video with one of four strategies:

  audio       best audio, saved as <id>.<ext>, reused when present
  video       up to 720p mp4, saved as <id>.mp4, reused when present
  song_audio  mp3 at 192K, saved as <title>.mp3, always downloaded
  song_video  mp4, saved as <title>.mp4, always downloaded`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			c.print(c.app.Download(cmd.Context(), kind, args[0], isID, formatID, title))
		},
	}
	cmd.Flags().BoolVar(&isID, "id", false, "treat LINK as a bare video id")
	cmd.Flags().StringVar(&kind, "kind", "audio", "audio, video, song_audio or song_video")
	cmd.Flags().StringVar(&formatID, "format-id", "", "yt-dlp format id (song kinds)")
	cmd.Flags().StringVar(&title, "title", "", "file name without extension (song kinds)")
	return cmd
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.ListenAddr
			}
			srv := server.New(c.app.Resolver(), c.log.Sub("http"))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print CLI version information",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			c.print(commands.NewAppWithDeps(nil, version).Version())
		},
	}
}
