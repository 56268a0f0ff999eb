package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"

	"mintwatch/client"
)

func jqFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "jq",
		Usage: "jq expression applied to the JSON result",
	}
}

// mintArg extracts and sanity-checks the mint address argument.
func mintArg(c *cli.Context) (string, error) {
	mint := strings.TrimSpace(c.Args().First())
	if mint == "" {
		return "", fmt.Errorf("MINT_ADDRESS argument is required")
	}
	if c.Args().Len() > 1 {
		return "", fmt.Errorf("expected exactly one MINT_ADDRESS argument")
	}
	return mint, nil
}

func newAPIClient(c *cli.Context) *client.Client {
	return client.NewClient(c.String("server-url"), nil, nil)
}

func holdersCommand() *cli.Command {
	return &cli.Command{
		Name:      "holders",
		Usage:     "Show aggregated holders for a mint",
		ArgsUsage: "MINT_ADDRESS",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			mint, err := mintArg(c)
			if err != nil {
				return err
			}

			holders, err := newAPIClient(c).Holders(c.Context, mint)
			if err != nil {
				return err
			}
			return printResult(c, holders)
		},
	}
}

func concentrationCommand() *cli.Command {
	return &cli.Command{
		Name:      "concentration",
		Usage:     "Show top-1/5/10 supply concentration for a mint",
		ArgsUsage: "MINT_ADDRESS",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			mint, err := mintArg(c)
			if err != nil {
				return err
			}

			report, err := newAPIClient(c).Concentration(c.Context, mint)
			if err != nil {
				return err
			}

			if c.Bool("json") || c.String("jq") != "" {
				return printResult(c, report)
			}

			fmt.Printf("Mint:    %s\n", report.Mint)
			fmt.Printf("Supply:  %s\n", report.Supply)
			fmt.Printf("Holders: %d\n", report.HolderCount)
			fmt.Printf("Top 1:   %.2f%%\n", report.Concentration.Top1Pct)
			fmt.Printf("Top 5:   %.2f%%\n", report.Concentration.Top5Pct)
			fmt.Printf("Top 10:  %.2f%%\n", report.Concentration.Top10Pct)
			if report.UsedFallback {
				fmt.Println("Note: computed from the largest accounts only (full scan unavailable)")
			}
			return nil
		},
	}
}

func whalesCommand() *cli.Command {
	return &cli.Command{
		Name:      "whales",
		Usage:     "Show holders above a supply-share threshold",
		ArgsUsage: "MINT_ADDRESS",
		Flags: []cli.Flag{
			&cli.Float64Flag{
				Name:  "min-pct",
				Usage: "Minimum supply share in percent (0 uses the server default)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of whales to return (0 uses the server default)",
			},
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			mint, err := mintArg(c)
			if err != nil {
				return err
			}

			report, err := newAPIClient(c).Whales(c.Context, mint, c.Float64("min-pct"), c.Int("limit"))
			if err != nil {
				return err
			}
			return printResult(c, report)
		},
	}
}

func safetyCommand() *cli.Command {
	return &cli.Command{
		Name:      "safety",
		Usage:     "Show the heuristic risk assessment for a mint",
		ArgsUsage: "MINT_ADDRESS",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			mint, err := mintArg(c)
			if err != nil {
				return err
			}

			safety, err := newAPIClient(c).Safety(c.Context, mint)
			if err != nil {
				return err
			}

			if c.Bool("json") || c.String("jq") != "" {
				return printResult(c, safety)
			}

			fmt.Printf("Mint:       %s\n", safety.Mint)
			fmt.Printf("Risk level: %s\n", strings.ToUpper(safety.RiskLevel))
			for _, reason := range safety.Reasons {
				fmt.Printf("  - %s\n", reason)
			}
			if safety.LargestPool != nil {
				fmt.Printf("Largest pool: %s on %s ($%.2f liquidity)\n",
					safety.LargestPool.PairAddress,
					safety.LargestPool.Venue,
					safety.LargestPool.LiquidityUSD,
				)
			}
			return nil
		},
	}
}

func reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "Show the combined analysis report for a mint",
		ArgsUsage: "MINT_ADDRESS",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			mint, err := mintArg(c)
			if err != nil {
				return err
			}

			report, err := newAPIClient(c).Report(c.Context, mint)
			if err != nil {
				return err
			}
			return printResult(c, report)
		},
	}
}

// printResult writes the value as JSON, optionally piped through a jq
// expression first.
func printResult(c *cli.Context, v interface{}) error {
	if expr := c.String("jq"); expr != "" {
		results, err := applyJQ(expr, v)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(v)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// applyJQ runs a jq expression over the value and collects the results.
// The value is round-tripped through JSON so gojq sees plain maps and slices.
func applyJQ(expr string, v interface{}) ([]interface{}, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq expression %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression %q: %w", expr, err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}

	var results []interface{}
	iter := code.Run(decoded)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := r.(error); isErr {
			return nil, fmt.Errorf("jq evaluation failed: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}
