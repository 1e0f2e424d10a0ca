package clients

const USER_AGENT = "myriadflow-bot/0.1 (+https://github.com/spacesedan/myriadflow)"
