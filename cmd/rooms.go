package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/Mihika-Tech/LiveCollab/internal/infra/adapters/roomfile"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Import or export room definitions",
}

var roomsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create rooms from a YAML file, existing rooms are skipped",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withContainer(cmd.Context(), func(ctx context.Context, app *container) {
			if err := seedRooms(ctx, app.roomUsecase, args[0]); err != nil {
				log.Fatalf("import rooms: %v", err)
			}
		})
	},
}

var roomsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write all rooms to a YAML file without passwords",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withContainer(cmd.Context(), func(ctx context.Context, app *container) {
			defs, err := app.roomUsecase.ExportRooms(ctx)
			if err != nil {
				log.Fatalf("export rooms: %v", err)
			}

			if err = roomfile.Save(args[0], defs); err != nil {
				log.Fatalf("export rooms: %v", err)
			}

			log.Printf("exported %d rooms to %s", len(defs), args[0])
		})
	},
}

func init() {
	roomsCmd.AddCommand(roomsImportCmd, roomsExportCmd)
	rootCmd.AddCommand(roomsCmd)
}

func withContainer(ctx context.Context, fn func(ctx context.Context, app *container)) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := loadConfig()

	app, err := newContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("init app: %v", err)
	}
	defer app.Close()

	fn(ctx, app)
}
