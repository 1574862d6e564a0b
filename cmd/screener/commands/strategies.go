package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// strategiesCmd represents the strategies command
var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "등록된 전략 목록",
	Long: `등록된 스크리닝 전략과 조건 목록을 표시합니다.

Example:
  go run ./cmd/screener strategies`,
	RunE: listStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func listStrategies(cmd *cobra.Command, args []string) error {
	app, err := initApp()
	if err != nil {
		return err
	}
	defer app.close()

	infos := app.registry.List()

	fmt.Printf("Registered strategies: %d\n\n", len(infos))

	for _, info := range infos {
		PrintDoubleSeparator()
		fmt.Printf("  %s (%s)\n", info.Name, info.ID)
		PrintSeparator()
		PrintKeyValue("Category", info.Category, 10)
		PrintKeyValue("Version", info.Version, 10)
		PrintKeyValue("Conditions", fmt.Sprintf("%d", info.ConditionCount), 10)
		fmt.Printf("   %s\n\n", info.Description)

		numbers := make([]int, 0, len(info.Conditions))
		for num := range info.Conditions {
			numbers = append(numbers, num)
		}
		sort.Ints(numbers)
		for _, num := range numbers {
			fmt.Printf("   %2d. %s\n", num, info.Conditions[num])
		}
		fmt.Println()
	}

	return nil
}
