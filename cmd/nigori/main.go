// Command nigori is a thin CLI dispatcher over the nigori client library,
// modeled on postalsys-Muti-Metroo/cmd/muti-metroo's cobra command tree: one
// RunE handler per subcommand, flags bound directly to the client
// constructor, no cryptography of its own. Its command tree covers
// register | authenticate | add | get | list | create-split | split-add |
// split-get.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sherle/nigori-go"
	"github.com/sherle/nigori-go/internal/config"
	"github.com/sherle/nigori-go/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "nigori:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	var server, user, serverName, password string
	var port int
	var logLevel, logFormat string

	root := &cobra.Command{
		Use:   "nigori",
		Short: "Client for a Nigori encrypted record store",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&server, "server", "", "record store host")
	root.PersistentFlags().IntVar(&port, "port", 0, "record store port")
	root.PersistentFlags().StringVar(&user, "user", "", "username")
	root.PersistentFlags().StringVar(&serverName, "server-name", "", "server name bound into key derivation")
	root.PersistentFlags().StringVar(&password, "password", "", "password (prefer NIGORI_PASSWORD env var)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "text|json")

	newClient := func() (*nigori.Client, error) {
		cfg := config.Default()
		if cfgPath != "" {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
		if server != "" {
			cfg.Server = server
		}
		if port != 0 {
			cfg.Port = port
		}
		if user != "" {
			cfg.User = user
		}
		if serverName != "" {
			cfg.ServerName = serverName
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if logFormat != "" {
			cfg.LogFormat = logFormat
		}
		if password == "" {
			password = os.Getenv("NIGORI_PASSWORD")
		}
		if cfg.Server == "" || cfg.User == "" || password == "" {
			return nil, fmt.Errorf("server, user, and password are required")
		}

		log := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
		return nigori.NewClient(cfg.Server, cfg.Port, []byte(cfg.User), []byte(cfg.ServerName), []byte(password), nigori.WithLogger(log))
	}

	newSplitClient := func(servers []string) (*nigori.SplitClient, error) {
		cfg := config.Default()
		if cfgPath != "" {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
		if user != "" {
			cfg.User = user
		}
		if serverName != "" {
			cfg.ServerName = serverName
		}
		if password == "" {
			password = os.Getenv("NIGORI_PASSWORD")
		}
		if cfg.User == "" || password == "" {
			return nil, fmt.Errorf("user and password are required")
		}
		log := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

		clients := make([]*nigori.Client, 0, len(servers))
		endpoints := make([]nigori.SplitEndpoint, 0, len(servers))
		for _, hostport := range servers {
			host, portStr, found := strings.Cut(hostport, ":")
			if !found {
				return nil, fmt.Errorf("invalid server %q, want host:port", hostport)
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid port in %q: %w", hostport, err)
			}
			c, err := nigori.NewClient(host, port, []byte(cfg.User), []byte(cfg.ServerName), []byte(password), nigori.WithLogger(log))
			if err != nil {
				return nil, err
			}
			clients = append(clients, c)
			endpoints = append(endpoints, nigori.SplitEndpoint{Host: host, Port: port})
		}
		return &nigori.SplitClient{Clients: clients, Endpoints: endpoints}, nil
	}

	root.AddCommand(
		registerCmd(newClient),
		authenticateCmd(newClient),
		addCmd(newClient),
		getCmd(newClient),
		listCmd(newClient),
		createSplitCmd(newClient),
		splitAddCmd(newSplitClient),
		splitGetCmd(newSplitClient),
	)
	return root
}

func createSplitCmd(newClient func() (*nigori.Client, error)) *cobra.Command {
	var k int
	var servers []string
	cmd := &cobra.Command{
		Use:   "create-split <name>",
		Short: "Persist a split descriptor (threshold + endpoints) under <name>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			descriptor := &nigori.SplitDescriptor{K: k}
			for _, hostport := range servers {
				host, portStr, found := strings.Cut(hostport, ":")
				if !found {
					return fmt.Errorf("invalid server %q, want host:port", hostport)
				}
				port, err := strconv.Atoi(portStr)
				if err != nil {
					return fmt.Errorf("invalid port in %q: %w", hostport, err)
				}
				descriptor.Endpoints = append(descriptor.Endpoints, nigori.SplitEndpoint{Host: host, Port: port})
			}
			return c.AddRecord(context.Background(), nigori.TypeSplitServers, []byte(args[0]), descriptor.Marshal())
		},
	}
	cmd.Flags().IntVar(&k, "k", 2, "reconstruction threshold")
	cmd.Flags().StringSliceVar(&servers, "servers", nil, "comma-separated host:port list the shares will be dispersed to")
	cmd.MarkFlagRequired("servers")
	return cmd
}

func registerCmd(newClient func() (*nigori.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Publish this user's Schnorr public key to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return c.Register(context.Background())
		},
	}
}

func authenticateCmd(newClient func() (*nigori.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "authenticate",
		Short: "Prove possession of the password to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return c.Authenticate(context.Background())
		},
	}
}

func addCmd(newClient func() (*nigori.Client, error)) *cobra.Command {
	var typeTag uint32
	cmd := &cobra.Command{
		Use:   "add <name> <value>",
		Short: "Encrypt and store a new record version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			return c.AddRecord(context.Background(), typeTag, []byte(args[0]), []byte(args[1]))
		},
	}
	cmd.Flags().Uint32Var(&typeTag, "type", nigori.TypePassword, "record type tag")
	return cmd
}

func getCmd(newClient func() (*nigori.Client, error)) *cobra.Command {
	var typeTag uint32
	var version int
	cmd := &cobra.Command{
		Use:   "get <name>",
		Short: "Fetch and decrypt one version of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			rv, err := c.GetRecord(context.Background(), typeTag, []byte(args[0]), version)
			if err != nil {
				return err
			}
			fmt.Println(string(rv.Value))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&typeTag, "type", nigori.TypePassword, "record type tag")
	cmd.Flags().IntVar(&version, "version", -1, "version to fetch (-1 = latest)")
	return cmd
}

func splitAddCmd(newSplitClient func([]string) (*nigori.SplitClient, error)) *cobra.Command {
	var typeTag uint32
	var k int
	var servers []string
	cmd := &cobra.Command{
		Use:   "split-add <name> <secret>",
		Short: "Shamir-split a secret and disperse it across --servers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newSplitClient(servers)
			if err != nil {
				return err
			}
			sc.K = k
			return sc.Split(context.Background(), typeTag, []byte(args[0]), []byte(args[1]))
		},
	}
	cmd.Flags().Uint32Var(&typeTag, "type", nigori.TypeSplitServers, "record type tag")
	cmd.Flags().IntVar(&k, "k", 2, "reconstruction threshold")
	cmd.Flags().StringSliceVar(&servers, "servers", nil, "comma-separated host:port list, one per share")
	cmd.MarkFlagRequired("servers")
	return cmd
}

func splitGetCmd(newSplitClient func([]string) (*nigori.SplitClient, error)) *cobra.Command {
	var typeTag uint32
	var k int
	var servers []string
	cmd := &cobra.Command{
		Use:   "split-get <name>",
		Short: "Reconstruct a secret from any k of --servers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := newSplitClient(servers)
			if err != nil {
				return err
			}
			sc.K = k
			secret, err := sc.Recover(context.Background(), typeTag, []byte(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(string(secret))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&typeTag, "type", nigori.TypeSplitServers, "record type tag")
	cmd.Flags().IntVar(&k, "k", 2, "reconstruction threshold")
	cmd.Flags().StringSliceVar(&servers, "servers", nil, "comma-separated host:port list, one per share")
	cmd.MarkFlagRequired("servers")
	return cmd
}

func listCmd(newClient func() (*nigori.Client, error)) *cobra.Command {
	var typeTag uint32
	cmd := &cobra.Command{
		Use:   "list <name>",
		Short: "List every version of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			versions, err := c.ListRecords(context.Background(), typeTag, []byte(args[0]))
			if err != nil {
				return err
			}
			var b strings.Builder
			for _, v := range versions {
				fmt.Fprintf(&b, "%04d/%04d %s %s\n", v.Version, v.TotalVersions, v.CreationTime.Format("2006-01-02T15:04:05Z"), string(v.Value))
			}
			fmt.Print(b.String())
			return nil
		},
	}
	cmd.Flags().Uint32Var(&typeTag, "type", nigori.TypePassword, "record type tag")
	return cmd
}
