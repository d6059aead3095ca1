package main

import (
	"fmt"

	"github.com/ruslano69/tdtp-bulk/pkg/adapters/mssql"
)

const version = "1.0.0"

// PrintVersion prints version information
func PrintVersion() {
	fmt.Printf("tdtpbulk version %s\n", version)
	fmt.Printf("TDTP Bulk - SQL Server bulk loader (mssql adapter %s)\n", mssql.Version)
	fmt.Println("https://github.com/ruslano69/tdtp-bulk")
}

// PrintHelp prints usage information
func PrintHelp() {
	fmt.Println("TDTP Bulk - load csv/xlsx files into SQL Server with bulk copy")
	fmt.Printf("Version: %s\n\n", version)

	fmt.Println("USAGE:")
	fmt.Println("  tdtpbulk [options]")
	fmt.Println()

	fmt.Println("OPTIONS:")
	fmt.Println("  -config <file>       Configuration file (default: config.yaml)")
	fmt.Println("  -file <path>         Source file, .csv or .xlsx")
	fmt.Println("  -table <name>        Target table, schema.table")
	fmt.Println("  -sheet <name>        Worksheet of an xlsx source")
	fmt.Println("  -batch <n>           Rows per batch (default: 5000)")
	fmt.Println("  -dry-run             Read and convert the file, do not load")
	fmt.Println("  -template <path>     Write an xlsx template for the target table")
	fmt.Println("  -json                Log as JSON")
	fmt.Println("  -create-config       Create a sample config.yaml")
	fmt.Println("  -version             Show version")
	fmt.Println()

	fmt.Println("EXAMPLES:")
	fmt.Println("  tdtpbulk -create-config")
	fmt.Println("  tdtpbulk -config config.yaml -file orders.csv -table sales.Orders")
	fmt.Println("  tdtpbulk -config config.yaml -template orders.xlsx -table sales.Orders")
	fmt.Println()

	fmt.Println("The whole file is loaded in one transaction: all rows or none.")
}
