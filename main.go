package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hogwarts-cloud/clonectl/config"
	"github.com/hogwarts-cloud/clonectl/internal/catalog"
	"github.com/hogwarts-cloud/clonectl/internal/controlplane"
	"github.com/hogwarts-cloud/clonectl/internal/executor"
	"github.com/hogwarts-cloud/clonectl/internal/models"
	"github.com/hogwarts-cloud/clonectl/internal/provisioner"
	"github.com/hogwarts-cloud/clonectl/internal/readiness"
	"github.com/hogwarts-cloud/clonectl/internal/remote"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var ErrSelectionAborted = errors.New("selection aborted")

var (
	configPath string
	node       string
	user       string
	keyPath    string
	password   string

	templateID   int
	baseID       int
	count        int
	startCIDR    string
	gatewayAddr  string
	bridge       string
	pool         string
	namePrefix   string
	osName       string
	templateAddr string
	concurrency  int
	diskSizeGB   int

	storageID    string
	sourcePath   string
	contentClass string
)

var root = &cobra.Command{
	Use:   "clonectl",
	Short: "Bulk provisioning of instances on the cluster control plane",
}

var provision = &cobra.Command{
	Use:   "provision",
	Short: "Clone a template N times and reconfigure each clone's network",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		startIP, network, err := net.ParseCIDR(startCIDR)
		if err != nil {
			return fmt.Errorf("failed to parse start address: %w", err)
		}
		prefixLength, _ := network.Mask.Size()

		family, err := models.ParseOSFamily(osName)
		if err != nil {
			return err
		}

		gateway := cfg.Provision.Gateway
		if gatewayAddr != "" {
			if gateway = net.ParseIP(gatewayAddr); gateway == nil {
				return fmt.Errorf("failed to parse gateway %q", gatewayAddr)
			}
		}

		templateIP := cfg.Provision.TemplateIP
		if templateAddr != "" {
			if templateIP = net.ParseIP(templateAddr); templateIP == nil {
				return fmt.Errorf("failed to parse template address %q", templateAddr)
			}
		}
		if templateIP == nil {
			return errors.New("template address is required")
		}

		credential, err := buildCredential(cfg)
		if err != nil {
			return err
		}

		client := newClient(cfg)

		var diskSpec string
		if diskSizeGB > 0 {
			storage, err := catalog.SelectStorage(cmd.Context(), client, models.ContentImages)
			if err != nil {
				return fmt.Errorf("failed to select storage for disk resize: %w", err)
			}
			diskSpec = catalog.DiskSpecifier(storage.Type, diskSizeGB)
		}

		log := logrus.New()

		p := provisioner.New(provisioner.Config{
			ControlPlane: client,
			Runners: func(host string, credential models.Credential) remote.Runner {
				return remote.New(host, credential)
			},
			Poller:      readiness.New(),
			Log:         log,
			Concurrency: firstNonZero(concurrency, cfg.Provision.Concurrency),
		})

		report, err := p.Run(cmd.Context(), provisioner.RunInput{
			Request: models.AllocationRequest{
				TemplateID:   templateID,
				BaseID:       baseID,
				Count:        count,
				StartIP:      startIP,
				PrefixLength: prefixLength,
				Gateway:      gateway,
				Bridge:       firstNonEmpty(bridge, cfg.Provision.Bridge),
				NamePrefix:   namePrefix,
				Pool:         firstNonEmpty(pool, cfg.Provision.Pool),
				DiskSpec:     diskSpec,
			},
			TemplateIP: templateIP,
			Credential: credential,
			OSFamily:   family,
		})
		if err != nil {
			return fmt.Errorf("failed to provision: %w", err)
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))

		if !report.AllReady() {
			return fmt.Errorf("%d of %d tasks failed", len(report.Failed), count)
		}

		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse and select an installable image from local and remote sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newClient(cfg)
		ctx := cmd.Context()

		storage := firstNonEmpty(storageID, cfg.Catalog.Storage)
		if storage == "" {
			selected, err := catalog.SelectStorage(ctx, client, models.ContentInstallMedia)
			if err != nil {
				return fmt.Errorf("failed to select storage: %w", err)
			}
			storage = selected.ID
		}

		local, err := client.ListImages(ctx, storage)
		if err != nil {
			return fmt.Errorf("failed to list local images: %w", err)
		}

		var remoteEntries []models.CatalogEntry
		if source := firstNonEmpty(sourcePath, cfg.Catalog.Source); source != "" {
			file, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("failed to open catalog source: %w", err)
			}
			defer func() { _ = file.Close() }()

			if remoteEntries, err = catalog.ParseRemoteSource(file); err != nil {
				return fmt.Errorf("failed to parse catalog source: %w", err)
			}
		}

		view, err := catalog.NewView(catalog.Merge(local, remoteEntries))
		if err != nil {
			return err
		}

		entry, err := selectEntry(view, cmd.InOrStdin(), cmd.OutOrStdout())
		if errors.Is(err, ErrSelectionAborted) {
			// Declining to pick an image is not a failure.
			return nil
		}
		if err != nil {
			return err
		}

		if entry.Kind == models.SourceRemote {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) %s\n", entry.DisplayName, entry.Kind, entry.Location)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, storage %s)\n", entry.DisplayName, entry.Kind, storage)
		}

		return nil
	},
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Pick the active storage with the most free capacity for a content class",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var class models.ContentClass
		switch contentClass {
		case "images":
			class = models.ContentImages
		case "iso":
			class = models.ContentInstallMedia
		default:
			return fmt.Errorf("unknown content class %q", contentClass)
		}

		storage, err := catalog.SelectStorage(cmd.Context(), newClient(cfg), class)
		if err != nil {
			return fmt.Errorf("failed to select storage: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s free)\n", storage.ID, storage.Type, humanize.IBytes(storage.FreeBytes))

		return nil
	},
}

func selectEntry(view *catalog.View, in io.Reader, out io.Writer) (models.CatalogEntry, error) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintf(out, "Page %d/%d\n", view.PageNumber(), view.PageCount())
		for i, entry := range view.Page() {
			fmt.Fprintf(out, "%2d) [%s] %s\n", i+1, entry.Kind, entry.DisplayName)
		}
		fmt.Fprint(out, "select number, n)ext, p)rev, q)uit: ")

		if !scanner.Scan() {
			return models.CatalogEntry{}, ErrSelectionAborted
		}

		switch input := strings.TrimSpace(scanner.Text()); input {
		case "n":
			view.Next()
		case "p":
			view.Prev()
		case "q":
			return models.CatalogEntry{}, ErrSelectionAborted
		default:
			position, err := strconv.Atoi(input)
			if err != nil {
				continue
			}

			entry, err := view.Select(position)
			if err != nil {
				continue
			}

			return entry, nil
		}
	}
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Config{}, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

func newClient(cfg config.Config) *controlplane.Client {
	return controlplane.New(controlplane.Config{
		Node:     firstNonEmpty(node, cfg.ControlPlane.Node),
		Executor: executor.New(),
	})
}

func buildCredential(cfg config.Config) (models.Credential, error) {
	credential := models.Credential{
		User:     firstNonEmpty(user, cfg.Credential.User),
		Password: firstNonEmpty(password, cfg.Credential.Password),
	}

	if path := firstNonEmpty(keyPath, cfg.Credential.PrivateKeyPath); path != "" {
		key, err := os.ReadFile(path)
		if err != nil {
			return models.Credential{}, fmt.Errorf("failed to read private key: %w", err)
		}
		credential.PrivateKey = key
	}

	return credential, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}

func firstNonZero(values ...int) int {
	for _, value := range values {
		if value != 0 {
			return value
		}
	}

	return 0
}

func init() {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config directory")
	root.PersistentFlags().StringVar(&node, "node", "", "Control plane node name")
	root.PersistentFlags().StringVar(&user, "user", "", "Guest user")
	root.PersistentFlags().StringVar(&keyPath, "key", "", "Path to guest private key")
	root.PersistentFlags().StringVar(&password, "password", "", "Guest password")

	provision.Flags().IntVar(&templateID, "template", 0, "Template instance id")
	provision.Flags().IntVar(&baseID, "base-id", 0, "First clone instance id")
	provision.Flags().IntVar(&count, "count", 0, "Number of clones")
	provision.Flags().StringVar(&startCIDR, "start-ip", "", "First clone address in CIDR form")
	provision.Flags().StringVar(&gatewayAddr, "gateway", "", "Guest default gateway")
	provision.Flags().StringVar(&bridge, "bridge", "", "Bridge to attach clones to")
	provision.Flags().StringVar(&pool, "pool", "", "Pool to place clones into")
	provision.Flags().StringVar(&namePrefix, "name-prefix", "clone", "Clone name prefix")
	provision.Flags().StringVar(&osName, "os", "", "Guest os family: debian, ubuntu or windows")
	provision.Flags().StringVar(&templateAddr, "template-ip", "", "Template's live guest address")
	provision.Flags().IntVar(&concurrency, "concurrency", 0, "Bound on the clone/start worker pool")
	provision.Flags().IntVar(&diskSizeGB, "disk-size", 0, "Resize each clone's disk to this many GB")
	provision.MarkFlagRequired("template")
	provision.MarkFlagRequired("base-id")
	provision.MarkFlagRequired("count")
	provision.MarkFlagRequired("start-ip")
	provision.MarkFlagRequired("os")

	catalogCmd.Flags().StringVar(&storageID, "storage", "", "Storage to list local images from")
	catalogCmd.Flags().StringVar(&sourcePath, "source", "", "Path to remote catalog source list")

	storageCmd.Flags().StringVar(&contentClass, "class", "images", "Content class: images or iso")

	root.AddCommand(provision, catalogCmd, storageCmd)
}

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
