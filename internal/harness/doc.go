// Package harness runs query scenarios against a fresh session and
// compares the outcome with expectations and golden traces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	documents:
//	  - name: lib
//	    uri: lib.xml
//	    xml: |
//	      <library><book id="b1"/></library>
//	  - name: big
//	    file: data/big.xml      # relative to the scenario file
//	steps:
//	  - query: 'for $b in doc("lib")//book return $b/@id/string()'
//	    expect:
//	      items: ["b1"]
//	  - query: 'declare variable $n external; $n + 1'
//	    vars: { n: 41 }
//	    expect: { items: ["42"] }
//	  - insert: { doc: lib, parent: 1, xml: '<book id="b2"/>' }
//	  - delete: { doc: lib, pre: 2 }
//	    expect: { error: INVALID_TARGET }
//	assertions:
//	  - type: node_count
//	    doc: lib
//	    count: 4
//	  - type: query_result
//	    query: 'count(doc("lib")//book)'
//	    items: ["1"]
//
// # Assertion Types
//
//   - document_count: the number of stored documents
//   - node_count: the number of records of a document
//   - query_result: the items of a query run after all steps
//   - trace_count: the number of steps of an operation in the trace
//
// # Deterministic Testing
//
// Each scenario runs in a fresh in-memory SQLite store with sequential
// ids (testutil.SequentialIDGenerator) and a deterministic logical clock
// (testutil.DeterministicClock), so traces are identical across runs and
// can be compared with golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/library.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
