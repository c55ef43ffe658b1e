package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cacheKeysPattern string
	cacheKeysLimit   int
	cacheClearType   string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the intelligence cache",
}

var cacheKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List cache keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		keys, err := env.Cache.ListKeys(ctx, cacheKeysPattern, cacheKeysLimit, "")
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		fmt.Printf("%d key(s)\n", len(keys))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Cache.Clear(ctx, cacheClearType)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d entr(ies)\n", n)
		return nil
	},
}

var cacheExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Cache.DeleteExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d expired entr(ies)\n", n)
		return nil
	},
}

func init() {
	cacheKeysCmd.Flags().StringVar(&cacheKeysPattern, "pattern", "*", "key glob pattern")
	cacheKeysCmd.Flags().IntVar(&cacheKeysLimit, "limit", 100, "max keys to list")
	cacheClearCmd.Flags().StringVar(&cacheClearType, "type", "", "only entries of this type")
	cacheCmd.AddCommand(cacheKeysCmd, cacheClearCmd, cacheExpireCmd)
	rootCmd.AddCommand(cacheCmd)
}
