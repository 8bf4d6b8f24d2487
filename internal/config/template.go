package config

// Template is the commented deployer.toml written by "config init"
const Template = `# casino-deployer project configuration
# Environment variables override these values; flags override both.
# The deployer key is never read from this file: set DEPLOYER_PRIVATE_KEY
# or let the CLI prompt for it.

[network]
rpc_url = "http://127.0.0.1:8545"
# chain_id = 11155111          # detected from the RPC endpoint when omitted
# receipt_poll_interval_ms = 2000

[artifacts]
dir = "."
builder = "auto"               # auto, foundry or hardhat
# manifest = "contracts.yaml"  # override the built-in contract list

[verification]
enabled = true
api_url = "https://api.etherscan.io/v2/api"
# api_key = ""                 # prefer ETHERSCAN_API_KEY
settle_delay_seconds = 30
poll_interval_seconds = 5
max_polls = 12
requests_per_second = 5

[metrics]
enabled = false
# pushgateway_url = "http://localhost:9091"
job = "casino-deployer"

[logging]
level = "info"
format = "text"

[output]
format = "text"                # text, json or yaml
# summary_file = "deployments.json"
`
