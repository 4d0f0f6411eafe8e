package cascade

const PageContextScript = pageContextScript
