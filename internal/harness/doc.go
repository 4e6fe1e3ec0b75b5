// Package harness runs compile scenarios: expression documents compiled
// for several dialects and checked against expected SQL, parameters and
// error codes.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: within_distance
//	description: "Distance filters across engines"
//	columns:
//	  roads: { table: roads, name: geom, type: LINESTRING }
//	cases:
//	  - name: literal
//	    dialects: [postgis, mysql]
//	    mode: where
//	    expr:
//	      op: within_distance
//	      args: [{ column: roads }, "POINT(0 0)", 10]
//	    expect:
//	      postgis:
//	        sql: "ST_DWithin(roads.geom, ST_GeomFromText($1, $2), $3)"
//	        params: ["POINT(0 0)", 4326, 10]
//	      mysql:
//	        contains: ["MBRIntersects("]
//
// See Document for the expression node grammar. Dialects may be "all".
// An expectation either names an error code (error: UNSUPPORTED_OPERATION)
// or constrains the output with sql, params and contains.
//
// # Golden Snapshots
//
// Snapshot renders every outcome of a run as plain text. RunWithGolden
// compares it with testdata/golden/<scenario>.golden using goldie.
package harness
