package suite

// Example is the starter suite written by `evidencecheck init`. It targets
// the sample statement fixture written alongside it.
const Example = `name: sample-statements
version: 1
defaults:
  criteria:
    min_overall_confidence: 85
    min_field_confidence: 70
    max_extraction_time_ms: 30000
    required_fields:
      - account_holder_name
      - statement_period
      - transactions
      - closing_balance
    max_transaction_error_rate: 0.1
cases:
  - id: checking-oct-2024
    name: Checking account, October 2024
    input:
      document_location: statements/checking-oct-2024.pdf
      characteristics:
        scanned: false
        page_count: 2
        issuer: First Harbor Bank
    expected:
      account_holder_contains: Doe
      bank_name: First Harbor Bank
      transaction_count_min: 1
      transaction_count_max: 50
      statement_period_start_contains: "2024-10"
      opening_balance: 1000.00
      closing_balance: 1195.24
      sample_transactions:
        - date_contains: "2024-10"
          description_contains: Coffee
          amount: 4.75
          amount_tolerance: 0.02
`
