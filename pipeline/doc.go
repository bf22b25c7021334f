// Package pipeline assembles the nightly dbt DataOps pipeline.
//
// A Pipeline binds a dag.Definition to a CommandRunner and hands the
// resulting registry and plan to a dag.Engine together with the health gate
// and the notifier:
//
//	check_source_freshness
//	  -> run_bronze_layer -> run_silver_layer -> run_gold_layer
//	  -> run_data_quality_tests -> generate_dbt_documentation (ALL_DONE)
//	  -> health gate -> one notification
//
// Definition commands are plain dbt invocations. CommandBuilder appends
// --profiles-dir and --target and, for the docker-cli runner, wraps the
// line in docker exec.
package pipeline
