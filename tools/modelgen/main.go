package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gen"
	"gorm.io/gorm"
)

var tables = []string{"forge_sessions", "forge_cooldowns", "forge_obligations", "npc_bindings"}

func main() {
	var dsn, out string
	flag.StringVar(&dsn, "dsn", os.Getenv("FORGE_DB_DSN"), "postgres dsn")
	flag.StringVar(&out, "out", "internal/adapter/repo/gorm/query", "output dir; models land in the sibling model package")
	flag.Parse()

	if dsn == "" {
		log.Fatal("missing --dsn or FORGE_DB_DSN")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:       out,
		ModelPkgPath:  "model",
		Mode:          gen.WithoutContext,
		FieldNullable: true,
	})
	g.UseDB(db)
	// Currency columns keep exact precision.
	g.WithDataTypeMap(map[string]func(gorm.ColumnType) string{
		"numeric": func(gorm.ColumnType) string { return "decimal.Decimal" },
	})
	g.WithImportPkgPath("github.com/shopspring/decimal")
	for _, table := range tables {
		g.GenerateModel(table)
	}
	g.Execute()

	fmt.Printf("generated gorm models for %d tables next to %s\n", len(tables), out)
}
