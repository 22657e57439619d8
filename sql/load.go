package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed indexes.sql
var indexesSQL string

//go:embed sessions.sql
var sessionsSQL string

// Function lists for verification
var IndexesFunctions = []string{
	"init_indexes",
	"insert_document_index",
	"insert_index_chunk",
	"select_document_index",
	"select_index_chunks",
	"delete_document_index",
}

var SessionsFunctions = []string{
	"init_sessions",
	"insert_session",
	"select_session",
	"delete_session",
	"delete_expired_sessions",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadIndexesSql loads the functions storing document indexes
func LoadIndexesSql(db *sql.DB, force bool) error {
	return loadSql(db, "indexes", indexesSQL, IndexesFunctions, force)
}

// LoadSessionsSql loads the functions storing sessions
func LoadSessionsSql(db *sql.DB, force bool) error {
	return loadSql(db, "sessions", sessionsSQL, SessionsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadIndexesSql(db, force); err != nil {
		return err
	}

	if err := LoadSessionsSql(db, force); err != nil {
		return err
	}

	return nil
}

// loadSql executes script unless all functions already exist or force is set,
// and verifies afterwards that they do.
func loadSql(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
