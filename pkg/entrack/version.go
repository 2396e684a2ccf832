package entrack

const Version = "0.1.0"
