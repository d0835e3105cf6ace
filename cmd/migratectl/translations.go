package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var translationsLocale string

var translationsCmd = &cobra.Command{
	Use:   "translations <interface>",
	Short: "Show the live translation values for an interface",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranslations,
}

func init() {
	translationsCmd.Flags().StringVar(&translationsLocale, "locale", "", "Only show values for this locale")
}

type translationsResponse struct {
	Environment  string                       `json:"environment"`
	Interface    string                       `json:"interface"`
	Translations map[string]map[string]string `json:"translations"`
}

func runTranslations(cmd *cobra.Command, args []string) error {
	client := newClient()

	var resp translationsResponse
	if err := client.getJSON(basePath+"/translations/"+args[0], &resp); err != nil {
		return fmt.Errorf("fetching translations failed: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(resp)
	}

	keys := make([]string, 0, len(resp.Translations))
	for k := range resp.Translations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := []string{"Key", "Locale", "Value"}
	var rows [][]string
	for _, k := range keys {
		locales := resp.Translations[k]
		localeNames := make([]string, 0, len(locales))
		for loc := range locales {
			localeNames = append(localeNames, loc)
		}
		sort.Strings(localeNames)
		for _, loc := range localeNames {
			if translationsLocale != "" && loc != translationsLocale {
				continue
			}
			rows = append(rows, []string{k, loc, truncate(locales[loc], 60)})
		}
	}
	printTable(headers, rows)
	fmt.Printf("\n%d key(s) in %s/%s\n", len(keys), resp.Environment, resp.Interface)
	return nil
}
