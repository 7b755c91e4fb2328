package config

const SERVER_YML = `
listener:
  port: 3000

sqlite:
  passPhrase: passphrase
  dir: dev
`
