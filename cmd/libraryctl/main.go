// Package main はCLIツールのエントリポイント。
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"library-management-service/internal/envelope"
	"library-management-service/internal/handler"
	"library-management-service/internal/infra"
)

var (
	apiURL        string
	authToken     string
	output        string
	timeout       time.Duration
	encryptBodies bool
	payloadSecret string
)

// client は PersistentPreRun で初期化される。
var client *apiClient

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "libraryctl",
		Short:        "Library Management Service CLI",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if apiURL == "" {
				apiURL = os.Getenv("LIBRARYCTL_API_URL")
			}
			if authToken == "" {
				authToken = os.Getenv("LIBRARYCTL_TOKEN")
			}
			if payloadSecret == "" {
				payloadSecret = os.Getenv("PAYLOAD_SECRET")
			}
			client = &apiClient{
				baseURL:    apiURL,
				token:      authToken,
				encrypt:    encryptBodies,
				httpClient: &http.Client{Timeout: timeout},
			}
			if payloadSecret != "" {
				client.cipher = envelope.New(payloadSecret)
			}
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API endpoint URL (or set LIBRARYCTL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "Session token (or set LIBRARYCTL_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&encryptBodies, "encrypt", false, "Send encrypted request bodies")
	rootCmd.PersistentFlags().StringVar(&payloadSecret, "payload-secret", "", "Payload passphrase (or set PAYLOAD_SECRET)")

	// サブコマンド登録
	rootCmd.AddCommand(signupCmd())
	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(booksCmd())
	rootCmd.AddCommand(encryptCmd())
	rootCmd.AddCommand(decryptCmd())
	rootCmd.AddCommand(wrapKeyCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "libraryctl version %s\n", infra.Version)
		},
	}
}

func signupCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new user and print the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, "/api/auth/signup", handler.SignupRequest{
				Username: username,
				Email:    email,
				Password: password,
			})
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, "/api/auth/login", handler.LoginRequest{
				Email:    email,
				Password: password,
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (required)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func authenticate(cmd *cobra.Command, path string, in any) error {
	body, _, err := client.do(cmd.Context(), http.MethodPost, path, in)
	if err != nil {
		return err
	}
	if output == "json" {
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	}
	var resp handler.AuthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user %d authenticated\n", resp.UserID)
	fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
	return nil
}

func booksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Manage the authenticated user's books",
	}
	cmd.AddCommand(booksListCmd(), booksGetCmd(), booksAddCmd(), booksDeleteCmd())
	return cmd
}

func booksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List books, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := client.do(cmd.Context(), http.MethodGet, "/api/books", nil)
			if err != nil {
				return err
			}
			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			var books []handler.BookResponse
			if err := json.Unmarshal(body, &books); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			return printBooks(cmd.OutOrStdout(), books)
		},
	}
}

func booksGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			body, _, err := client.do(cmd.Context(), http.MethodGet, fmt.Sprintf("/api/books/%d", id), nil)
			if err != nil {
				return err
			}
			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			var book handler.BookResponse
			if err := json.Unmarshal(body, &book); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			return printBooks(cmd.OutOrStdout(), []handler.BookResponse{book})
		},
	}
}

func booksAddCmd() *cobra.Command {
	var req handler.BookRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, _, err := client.do(cmd.Context(), http.MethodPost, "/api/books", req)
			if err != nil {
				return err
			}
			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			var book handler.BookResponse
			if err := json.Unmarshal(body, &book); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created book %d %q\n", book.ID, book.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Title (required)")
	cmd.Flags().StringVar(&req.Author, "author", "", "Author")
	cmd.Flags().StringVar(&req.ISBN, "isbn", "", "ISBN")
	cmd.Flags().IntVar(&req.PublishedYear, "year", 0, "Published year")
	cmd.MarkFlagRequired("title")
	return cmd
}

func booksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			body, _, err := client.do(cmd.Context(), http.MethodDelete, fmt.Sprintf("/api/books/%d", id), nil)
			if err != nil {
				return err
			}
			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %d\n", id)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid book id %q", s)
	}
	return id, nil
}

func printBooks(out io.Writer, books []handler.BookResponse) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tISBN\tYEAR\tCREATED AT")
	for _, b := range books {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", b.ID, b.Title, b.Author, b.ISBN, b.PublishedYear, b.CreatedAt)
	}
	return w.Flush()
}

// encryptCmd は引数または標準入力をペイロード暗号で暗号化する。
func encryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [text]",
		Short: "Encrypt text with the payload passphrase",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if client.cipher == nil {
				return fmt.Errorf("--payload-secret is required (or set PAYLOAD_SECRET)")
			}
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.cipher.Encrypt(text))
			return nil
		},
	}
}

// decryptCmd は引数または標準入力の暗号文を復号する。
func decryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [ciphertext]",
		Short: "Decrypt text produced with the payload passphrase",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if client.cipher == nil {
				return fmt.Errorf("--payload-secret is required (or set PAYLOAD_SECRET)")
			}
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			plain, err := client.cipher.Decrypt(strings.TrimSpace(text))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plain)
			return nil
		},
	}
}

// wrapKeyCmd は署名鍵を Cloud KMS で暗号化し、JWT_SECRET_KMS_CIPHERTEXT 用の Base64 を出力する。
func wrapKeyCmd() *cobra.Command {
	var keyName string
	cmd := &cobra.Command{
		Use:   "wrap-key [secret]",
		Short: "Wrap a signing key with Cloud KMS for JWT_SECRET_KMS_CIPHERTEXT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyName == "" {
				keyName = os.Getenv("KMS_KEY_NAME")
			}
			secret, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			if len(secret) < 32 {
				return fmt.Errorf("signing key must be at least 32 bytes")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			kmsClient, err := infra.NewKMSClient(ctx, keyName)
			if err != nil {
				return err
			}
			defer kmsClient.Close()

			ciphertext, err := kmsClient.Encrypt(ctx, []byte(secret))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(ciphertext))
			return nil
		},
	}
	cmd.Flags().StringVar(&keyName, "key-name", "", "KMS key resource name (or set KMS_KEY_NAME)")
	return cmd
}

// inputText は引数があればそれを、無ければ標準入力を返す。
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
